package commands

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"gridtactics.dev/internal/sim/players"
)

// Envelope is the serialized form of a record.
type Envelope struct {
	Kind      string          `json:"kind"`
	Timestamp int64           `json:"ts"`
	Origin    Origin          `json:"origin"`
	Player    players.ID      `json:"player,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

var (
	registryMu sync.RWMutex
	registry   = map[string]func() Command{}
)

// Register makes a command kind decodable. It panics on duplicate kinds.
func Register(kind string, factory func() Command) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if kind == "" || factory == nil {
		panic("commands: invalid registration")
	}
	if _, ok := registry[kind]; ok {
		panic(fmt.Sprintf("commands: duplicate kind %q", kind))
	}
	registry[kind] = factory
}

// Kinds lists the registered command kinds in sorted order.
func Kinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func newCommand(kind string) (Command, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[kind]
	if !ok {
		return nil, false
	}
	return f(), true
}

func Encode(r Record) (Envelope, error) {
	if r.Command == nil {
		return Envelope{}, fmt.Errorf("record without command")
	}
	b, err := json.Marshal(r.Command)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", r.Command.Kind(), err)
	}
	return Envelope{
		Kind:      r.Command.Kind(),
		Timestamp: r.Timestamp,
		Origin:    r.Origin,
		Player:    r.Player,
		Payload:   b,
	}, nil
}

func Decode(env Envelope) (Record, error) {
	cmd, err := decodeCommand(env.Kind, env.Payload)
	if err != nil {
		return Record{}, err
	}
	return Record{Command: cmd, Timestamp: env.Timestamp, Origin: env.Origin, Player: env.Player}, nil
}

func decodeCommand(kind string, payload json.RawMessage) (Command, error) {
	cmd, ok := newCommand(kind)
	if !ok {
		return nil, fmt.Errorf("unknown command kind %q", kind)
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, cmd); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
	}
	return cmd, nil
}

// step is the nested encoding of a command inside a composite.
type step struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

func encodeSteps(cmds []Command) ([]step, error) {
	out := make([]step, 0, len(cmds))
	for _, c := range cmds {
		b, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", c.Kind(), err)
		}
		out = append(out, step{Kind: c.Kind(), Payload: b})
	}
	return out, nil
}

func decodeSteps(steps []step) ([]Command, error) {
	out := make([]Command, 0, len(steps))
	for _, s := range steps {
		c, err := decodeCommand(s.Kind, s.Payload)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
