package players

import (
	"fmt"
	"sort"
)

type ID uint32

// Player is one roster entry. NeedsState marks players that consume state events.
type Player struct {
	ID         ID   `json:"id" yaml:"id"`
	NeedsState bool `json:"needs_state" yaml:"needs_state"`
}

// Marker ties an entity to its owning player.
type Marker struct {
	Player ID `json:"player"`
}

// Roster is an ordered, duplicate-free player list.
type Roster struct {
	players []Player
}

func NewRoster(ps ...Player) (*Roster, error) {
	r := &Roster{}
	for _, p := range ps {
		if err := r.Add(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Roster) Add(p Player) error {
	if _, ok := r.Get(p.ID); ok {
		return fmt.Errorf("duplicate player %d", p.ID)
	}
	r.players = append(r.players, p)
	sort.Slice(r.players, func(i, j int) bool { return r.players[i].ID < r.players[j].ID })
	return nil
}

func (r *Roster) Get(id ID) (Player, bool) {
	if r == nil {
		return Player{}, false
	}
	for _, p := range r.players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

func (r *Roster) All() []Player {
	if r == nil {
		return nil
	}
	return append([]Player(nil), r.players...)
}

// StateConsumers returns the ids of players that want state events, in id order.
func (r *Roster) StateConsumers() []ID {
	if r == nil {
		return nil
	}
	var out []ID
	for _, p := range r.players {
		if p.NeedsState {
			out = append(out, p.ID)
		}
	}
	return out
}

func (r *Roster) Len() int {
	if r == nil {
		return 0
	}
	return len(r.players)
}
