package combat

import (
	"gridtactics.dev/internal/sim/commands"
	"gridtactics.dev/internal/sim/ids"
	"gridtactics.dev/internal/sim/objects"
	"gridtactics.dev/internal/sim/players"
	"gridtactics.dev/internal/sim/world"
)

const (
	KindDamageObject  = "damage_object"
	KindMarkAttacked  = "mark_attacked"
	KindCaptureObject = "capture_object"
)

func init() {
	commands.Register(KindDamageObject, func() commands.Command { return &DamageObject{} })
	commands.Register(KindMarkAttacked, func() commands.Command { return &MarkAttacked{} })
	commands.Register(KindCaptureObject, func() commands.Command { return &CaptureObject{} })
}

// DamageObject lowers an object's health. Before holds the health it replaced.
type DamageObject struct {
	Object ids.ObjectID `json:"object"`
	Amount uint32       `json:"amount"`

	Before *Health `json:"before,omitempty"`
}

func (c *DamageObject) Kind() string { return KindDamageObject }

func (c *DamageObject) Execute(w *world.World) error {
	return updateHealth(w, c.Object, func(h *Health) {
		before := *h
		c.Before = &before
		h.TakeDamage(c.Amount)
	})
}

func (c *DamageObject) Rollback(w *world.World) error {
	return restoreHealth(w, c.Object, c.Before)
}

// MarkAttacked flags an object as having attacked this turn.
type MarkAttacked struct {
	Object ids.ObjectID `json:"object"`

	Had bool `json:"had,omitempty"`
}

func (c *MarkAttacked) Kind() string { return KindMarkAttacked }

func (c *MarkAttacked) Execute(w *world.World) error {
	if _, ok := w.Object(c.Object); !ok {
		return commands.MissingEntity("object %s", c.Object)
	}
	return w.UpdateObject(c.Object, func(o *objects.Object) error {
		c.Had = o.HasComponent(AttackedComponent)
		return objects.SetComponent(o, AttackedComponent, true)
	})
}

func (c *MarkAttacked) Rollback(w *world.World) error {
	if _, ok := w.Object(c.Object); !ok {
		return commands.Irreversible("object %s gone", c.Object)
	}
	return w.UpdateObject(c.Object, func(o *objects.Object) error {
		if !c.Had {
			o.RemoveComponent(AttackedComponent)
		}
		return nil
	})
}

// CaptureObject hands a dead object to a new owner and restores its health.
// NewOwner zero means unowned.
type CaptureObject struct {
	Object    ids.ObjectID `json:"object"`
	NewOwner  players.ID   `json:"new_owner"`
	RestoreAt uint32       `json:"restore_at"`

	PriorOwner  *players.Marker `json:"prior_owner,omitempty"`
	PriorHealth *Health         `json:"prior_health,omitempty"`
}

func (c *CaptureObject) Kind() string { return KindCaptureObject }

func (c *CaptureObject) Execute(w *world.World) error {
	o, ok := w.Object(c.Object)
	if !ok {
		return commands.MissingEntity("object %s", c.Object)
	}
	h, err := health(o)
	if err != nil {
		return commands.MissingComponent("%v", err)
	}
	return w.UpdateObject(c.Object, func(o *objects.Object) error {
		prior := h
		c.PriorHealth = &prior
		if o.Owner != nil {
			m := *o.Owner
			c.PriorOwner = &m
		}
		o.Owner = nil
		if c.NewOwner != 0 {
			o.Owner = &players.Marker{Player: c.NewOwner}
		}
		h.Current = 0
		h.Heal(c.RestoreAt)
		return objects.SetComponent(o, HealthComponent, h)
	})
}

func (c *CaptureObject) Rollback(w *world.World) error {
	if c.PriorHealth == nil {
		return commands.Irreversible("capture of %s was never executed", c.Object)
	}
	if _, ok := w.Object(c.Object); !ok {
		return commands.Irreversible("object %s gone", c.Object)
	}
	return w.UpdateObject(c.Object, func(o *objects.Object) error {
		o.Owner = nil
		if c.PriorOwner != nil {
			m := *c.PriorOwner
			o.Owner = &m
		}
		return objects.SetComponent(o, HealthComponent, *c.PriorHealth)
	})
}

func updateHealth(w *world.World, id ids.ObjectID, fn func(h *Health)) error {
	o, ok := w.Object(id)
	if !ok {
		return commands.MissingEntity("object %s", id)
	}
	h, err := health(o)
	if err != nil {
		return commands.MissingComponent("%v", err)
	}
	return w.UpdateObject(id, func(o *objects.Object) error {
		fn(&h)
		return objects.SetComponent(o, HealthComponent, h)
	})
}

func restoreHealth(w *world.World, id ids.ObjectID, before *Health) error {
	if before == nil {
		return commands.Irreversible("health of %s was never changed", id)
	}
	if _, ok := w.Object(id); !ok {
		return commands.Irreversible("object %s gone", id)
	}
	return w.UpdateObject(id, func(o *objects.Object) error {
		return objects.SetComponent(o, HealthComponent, *before)
	})
}
