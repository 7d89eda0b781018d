package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"

	"gridtactics.dev/internal/sim/commands"
)

const journalPrefix = "journal"

// Entry is one journaled history transition.
type Entry struct {
	Seq      uint64             `json:"seq"`
	Tick     uint64             `json:"tick"`
	Event    commands.EventType `json:"event"`
	Envelope commands.Envelope  `json:"envelope"`
	Error    string             `json:"error,omitempty"`
}

// Journal is a command log hook that records every transition. Write errors are
// logged, never returned into the drain.
type Journal struct {
	w   *segmentWriter
	log logrus.FieldLogger
}

func NewJournal(gameDir string, logger logrus.FieldLogger) *Journal {
	return newJournal(gameDir, logger, defaultSegmentEntries)
}

func newJournal(gameDir string, logger logrus.FieldLogger, perSegment uint64) *Journal {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Journal{w: newSegmentWriter(filepath.Join(gameDir, "journal"), journalPrefix, perSegment), log: logger}
}

func (j *Journal) OnCommand(ev commands.Event) {
	env, err := commands.Encode(ev.Record)
	if err != nil {
		j.log.WithError(err).WithField("command", ev.Record.Kind()).Error("journal encode")
		return
	}
	e := Entry{Tick: ev.Tick, Event: ev.Type, Envelope: env}
	if ev.Err != nil {
		e.Error = ev.Err.Error()
	}
	if seq, err := j.w.append(e); err != nil {
		j.log.WithError(err).WithField("seq", seq).Error("journal write")
	}
}

func (j *Journal) Sync() error  { return j.w.Sync() }
func (j *Journal) Close() error { return j.w.Close() }

// ReadJournal reads every journal segment under gameDir in seq order.
func ReadJournal(gameDir string) ([]Entry, error) {
	paths, err := filepath.Glob(filepath.Join(gameDir, "journal", journalPrefix+"-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	var out []Entry
	for _, p := range paths {
		es, err := readFile(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		out = append(out, es...)
	}
	return out, nil
}

func readFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []Entry
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return out, err
		}
		out = append(out, e)
	}
	return out, sc.Err()
}
