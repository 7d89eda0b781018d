// Package combat is a minimal battle layer: health, attack power, a pluggable
// calculator and reversible commands that apply its results.
package combat

import (
	"fmt"

	"gridtactics.dev/internal/sim/objects"
)

// Component names in the object component bag.
const (
	HealthComponent        = "health"
	AttackComponent        = "attack"
	AttackedComponent      = "attacked"
	NonAttackableComponent = "non_attackable"
	InvulnerableComponent  = "invulnerable"
)

type DeathKind string

const (
	Destroy DeathKind = "destroy"
	Capture DeathKind = "capture"
)

// OnDeath says what happens to an object when its health reaches zero. RestoreAt
// is the health a captured object comes back with.
type OnDeath struct {
	Kind      DeathKind `json:"kind" yaml:"kind"`
	RestoreAt uint32    `json:"restore_at,omitempty" yaml:"restore_at"`
}

// Health makes an object attackable.
type Health struct {
	Current uint32  `json:"current" yaml:"current"`
	Max     uint32  `json:"max" yaml:"max"`
	OnDeath OnDeath `json:"on_death" yaml:"on_death"`
}

func (h *Health) TakeDamage(n uint32) {
	if n >= h.Current {
		h.Current = 0
		return
	}
	h.Current -= n
}

func (h *Health) Heal(n uint32) {
	if h.Current+n < h.Current || h.Current+n > h.Max {
		h.Current = h.Max
		return
	}
	h.Current += n
}

func (h Health) Dead() bool { return h.Current == 0 }

// Attack is an object's base attack power, optionally specialised per opponent
// type name.
type Attack struct {
	Power   uint32            `json:"power" yaml:"power"`
	Against map[string]uint32 `json:"against,omitempty" yaml:"against"`
}

func (a Attack) PowerAgainst(t objects.Type) uint32 {
	if p, ok := a.Against[t.Name]; ok {
		return p
	}
	return a.Power
}

func health(o *objects.Object) (Health, error) {
	h, ok := objects.GetComponent[Health](o, HealthComponent)
	if !ok {
		return Health{}, fmt.Errorf("object %s has no %s", o.ID, HealthComponent)
	}
	return h, nil
}
