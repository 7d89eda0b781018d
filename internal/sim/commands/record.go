package commands

import (
	"github.com/cespare/xxhash/v2"

	"gridtactics.dev/internal/sim/players"
	"gridtactics.dev/internal/sim/world"
)

// Command is a reversible world mutation. Rollback must exactly undo a successful
// Execute; Execute must either succeed fully or leave the world untouched.
type Command interface {
	Kind() string
	Execute(w *world.World) error
	Rollback(w *world.World) error
}

type Origin uint8

const (
	OriginSystem Origin = iota
	OriginPlayer
)

func (o Origin) String() string {
	if o == OriginPlayer {
		return "player"
	}
	return "system"
}

// Record is one entry of the command history.
type Record struct {
	Command Command
	// Timestamp is the wall-clock stamp in unix nanoseconds.
	Timestamp int64
	Origin    Origin
	Player    players.ID

	arrival uint64
	hash    uint64
}

func (r Record) Kind() string {
	if r.Command == nil {
		return ""
	}
	return r.Command.Kind()
}

func (r Record) Arrival() uint64 { return r.arrival }

// Hash is a deterministic digest of the encoded record.
func (r Record) Hash() uint64 {
	if r.hash != 0 {
		return r.hash
	}
	return hashRecord(r)
}

func hashRecord(r Record) uint64 {
	env, err := Encode(r)
	if err != nil {
		return xxhash.Sum64String(r.Kind())
	}
	d := xxhash.New()
	_, _ = d.WriteString(env.Kind)
	_, _ = d.Write(env.Payload)
	var tmp [9]byte
	for i := 0; i < 8; i++ {
		tmp[i] = byte(uint64(r.Timestamp) >> (8 * i))
	}
	tmp[8] = byte(r.Origin)
	_, _ = d.Write(tmp[:])
	return d.Sum64()
}

// Clone returns an independent copy of the record through its encoding.
func (r Record) Clone() (Record, error) {
	env, err := Encode(r)
	if err != nil {
		return Record{}, err
	}
	out, err := Decode(env)
	if err != nil {
		return Record{}, err
	}
	out.arrival = r.arrival
	out.hash = r.hash
	return out, nil
}

// before orders records by timestamp, then arrival, then origin (system first),
// then hash.
func before(a, b Record) bool {
	if a.Timestamp != b.Timestamp {
		return a.Timestamp < b.Timestamp
	}
	if a.arrival != b.arrival {
		return a.arrival < b.arrival
	}
	if a.Origin != b.Origin {
		return a.Origin < b.Origin
	}
	return a.Hash() < b.Hash()
}
