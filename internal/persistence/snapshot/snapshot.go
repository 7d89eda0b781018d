package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	GameID  string `json:"game_id"`
	Tick    uint64 `json:"tick"`
	Digest  string `json:"digest"`
}

// SnapshotV1 is a full copy of a world. Component and resource payloads are the
// JSON encodings held by the world.
type SnapshotV1 struct {
	Header Header `json:"header"`

	Counters  CountersV1   `json:"counters"`
	Maps      []MapV1      `json:"maps"`
	Objects   []ObjectV1   `json:"objects"`
	Resources []ResourceV1 `json:"resources,omitempty"`
	Players   []PlayerV1   `json:"players,omitempty"`
}

type CountersV1 struct {
	LastObject uint64 `json:"last_object"`
	LastMap    uint64 `json:"last_map"`
}

type MapV1 struct {
	ID       uint64     `json:"id"`
	Width    int        `json:"width"`
	Height   int        `json:"height"`
	Topology uint8      `json:"topology"`
	GridSize [2]float64 `json:"grid_size"`
	Origin   [2]float64 `json:"origin"`
	Tiles    []TileV1   `json:"tiles"`
}

type TileV1 struct {
	X            int               `json:"x"`
	Y            int               `json:"y"`
	Terrain      string            `json:"terrain"`
	TerrainClass string            `json:"terrain_class"`
	Costs        map[string]uint32 `json:"costs,omitempty"`
	Stacking     []StackV1         `json:"stacking"`
	Occupants    []uint64          `json:"occupants,omitempty"`
}

type StackV1 struct {
	Class   string `json:"class"`
	Current uint32 `json:"current"`
	Max     uint32 `json:"max"`
}

// ObjectV1 stores the JSON encoding of one object.
type ObjectV1 struct {
	ID   uint64 `json:"id"`
	JSON []byte `json:"json"`
}

type ResourceV1 struct {
	Name string `json:"name"`
	JSON []byte `json:"json"`
}

type PlayerV1 struct {
	ID         uint32 `json:"id"`
	NeedsState bool   `json:"needs_state"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := encodeSnapshot(f, snap); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// encodeSnapshot writes the header line and the gob body through zstd. The
// stream is complete only once the buffer is flushed and the encoder closed.
func encodeSnapshot(w io.Writer, snap SnapshotV1) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		_ = enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return fmt.Errorf("flush: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("zstd close: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The header line is duplicated inside the gob body.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return snap, nil
}

// ReadHeader reads only the leading header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, err
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("snapshot header: %w", err)
	}
	return h, nil
}
