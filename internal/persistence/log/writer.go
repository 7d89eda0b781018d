package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// defaultSegmentEntries bounds how many entries one journal segment holds.
const defaultSegmentEntries = 50000

// segmentWriter numbers journal entries and appends them as JSON lines to zstd
// segments named <prefix>-<first seq>.jsonl.zst. Zero padding keeps the name
// order equal to the seq order.
type segmentWriter struct {
	dir     string
	prefix  string
	perFile uint64

	mu      sync.Mutex
	seq     uint64
	inFile  uint64
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
	lastErr error
}

func newSegmentWriter(dir, prefix string, perFile uint64) *segmentWriter {
	if perFile == 0 {
		perFile = defaultSegmentEntries
	}
	return &segmentWriter{dir: dir, prefix: prefix, perFile: perFile}
}

// append assigns the next seq to e and writes it. A failed write still consumes
// the seq so a gap shows up on replay.
func (s *segmentWriter) append(e Entry) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	e.Seq = s.seq
	if s.w == nil || s.inFile >= s.perFile {
		if err := s.openLocked(e.Seq); err != nil {
			s.lastErr = err
			return e.Seq, err
		}
	}
	b, err := json.Marshal(e)
	if err != nil {
		return e.Seq, err
	}
	b = append(b, '\n')
	if _, err := s.w.Write(b); err != nil {
		s.lastErr = err
		return e.Seq, err
	}
	s.inFile++
	return e.Seq, nil
}

// Sync pushes buffered lines through the encoder to disk and reports the first
// write error seen since the previous Sync.
func (s *segmentWriter) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.lastErr
	s.lastErr = nil
	if s.enc == nil {
		return err
	}
	if ferr := s.w.Flush(); ferr != nil {
		return ferr
	}
	if ferr := s.enc.Flush(); ferr != nil {
		return ferr
	}
	if ferr := s.f.Sync(); ferr != nil {
		return ferr
	}
	return err
}

func (s *segmentWriter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *segmentWriter) openLocked(first uint64) error {
	if err := s.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(s.segmentPath(first), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	s.f, s.enc = f, enc
	s.w = bufio.NewWriterSize(enc, 128*1024)
	s.inFile = 0
	return nil
}

func (s *segmentWriter) closeLocked() error {
	if s.f == nil {
		return nil
	}
	err := s.w.Flush()
	if cerr := s.enc.Close(); err == nil {
		err = cerr
	}
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	s.f, s.enc, s.w = nil, nil, nil
	return err
}

func (s *segmentWriter) segmentPath(first uint64) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s-%020d.jsonl.zst", s.prefix, first))
}
