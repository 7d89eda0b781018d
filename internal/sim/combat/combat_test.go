package combat

import (
	"errors"
	"testing"

	"gridtactics.dev/internal/sim/commands"
	"gridtactics.dev/internal/sim/ids"
	"gridtactics.dev/internal/sim/mapping"
	"gridtactics.dev/internal/sim/objects"
	"gridtactics.dev/internal/sim/players"
	"gridtactics.dev/internal/sim/state"
	"gridtactics.dev/internal/sim/world"
)

func TestHealthBounds(t *testing.T) {
	h := Health{Current: 5, Max: 10}
	h.TakeDamage(7)
	if h.Current != 0 || !h.Dead() {
		t.Fatalf("damage should saturate at zero: %+v", h)
	}
	h.Heal(4)
	h.Heal(20)
	if h.Current != 10 {
		t.Fatalf("heal should cap at max: %+v", h)
	}
	h.Heal(^uint32(0))
	if h.Current != 10 {
		t.Fatalf("heal overflow: %+v", h)
	}
}

type fixture struct {
	w        *world.World
	log      *commands.Log
	attacker ids.ObjectID
	defender ids.ObjectID
}

func newFixture(t *testing.T, defenderHP uint32, death OnDeath) fixture {
	t.Helper()
	w := world.New()
	m, err := mapping.New(w.IDs.NextMapID(), 4, 1, mapping.TopologySquare, mapping.Grassland, nil,
		map[mapping.StackingClass]uint32{"ground": 1})
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if err := w.InsertMap(m); err != nil {
		t.Fatalf("insert map: %v", err)
	}

	tank := objects.Object{
		Owner:    &players.Marker{Player: 1},
		Type:     objects.Type{Name: "Tank", Group: "Armor", Class: "Unit"},
		Stacking: "ground",
	}
	mustSet(t, &tank, AttackComponent, Attack{Power: 3, Against: map[string]uint32{"Bunker": 1}})
	mustSet(t, &tank, HealthComponent, Health{Current: 10, Max: 10, OnDeath: OnDeath{Kind: Destroy}})

	rifle := objects.Object{
		Owner:    &players.Marker{Player: 2},
		Type:     objects.Type{Name: "Rifleman", Group: "Infantry", Class: "Unit"},
		Stacking: "ground",
	}
	mustSet(t, &rifle, HealthComponent, Health{Current: defenderHP, Max: 10, OnDeath: death})

	l := commands.NewLog(commands.Options{Strict: true})
	a := &commands.SpawnObject{Object: tank, Map: m.ID, Pos: mapping.TilePos{X: 0}}
	d := &commands.SpawnObject{Object: rifle, Map: m.ID, Pos: mapping.TilePos{X: 1}}
	l.Add(a)
	l.Add(d)
	if err := l.ExecuteBuffer(w); err != nil {
		t.Fatalf("spawn: %v", err)
	}
	return fixture{w: w, log: l, attacker: a.SpawnedID, defender: d.SpawnedID}
}

func mustSet(t *testing.T, o *objects.Object, name string, v any) {
	t.Helper()
	if err := objects.SetComponent(o, name, v); err != nil {
		t.Fatalf("set %s: %v", name, err)
	}
}

func healthOf(t *testing.T, w *world.World, id ids.ObjectID) Health {
	t.Helper()
	o, ok := w.Object(id)
	if !ok {
		t.Fatalf("object %s missing", id)
	}
	h, ok := objects.GetComponent[Health](o, HealthComponent)
	if !ok {
		t.Fatalf("object %s has no health", id)
	}
	return h
}

func TestAttackDamagesAndRollsBack(t *testing.T) {
	f := newFixture(t, 10, OnDeath{Kind: Destroy})
	seq, res, err := Plan(f.w, nil, f.attacker, f.defender)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if res.Damage != 3 || res.Killed {
		t.Fatalf("result: %+v", res)
	}
	f.log.Add(seq)
	if err := f.log.ExecuteBuffer(f.w); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if h := healthOf(t, f.w, f.defender); h.Current != 7 {
		t.Fatalf("health: %+v", h)
	}
	a, _ := f.w.Object(f.attacker)
	if !a.HasComponent(AttackedComponent) {
		t.Fatalf("attacker not marked")
	}

	f.log.RequestRollback(1)
	if err := f.log.DrainRollbacks(f.w); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if h := healthOf(t, f.w, f.defender); h.Current != 10 {
		t.Fatalf("health after rollback: %+v", h)
	}
	if a.HasComponent(AttackedComponent) {
		t.Fatalf("attacked marker survived rollback")
	}
}

func TestLethalAttackDestroysOrCaptures(t *testing.T) {
	f := newFixture(t, 2, OnDeath{Kind: Destroy})
	seq, res, err := Plan(f.w, BasicCalculator{}, f.attacker, f.defender)
	if err != nil || !res.Killed {
		t.Fatalf("plan: %+v %v", res, err)
	}
	f.log.Add(seq)
	if err := f.log.ExecuteBuffer(f.w); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if _, ok := f.w.Object(f.defender); ok {
		t.Fatalf("destroyed defender still exists")
	}
	if err := f.w.CheckInvariants(); err != nil {
		t.Fatalf("invariants: %v", err)
	}

	f = newFixture(t, 2, OnDeath{Kind: Capture, RestoreAt: 4})
	seq, _, err = Plan(f.w, nil, f.attacker, f.defender)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	f.log.Add(seq)
	if err := f.log.ExecuteBuffer(f.w); err != nil {
		t.Fatalf("execute: %v", err)
	}
	d, _ := f.w.Object(f.defender)
	if !d.OwnedBy(1) {
		t.Fatalf("captured object owner: %+v", d.Owner)
	}
	if h := healthOf(t, f.w, f.defender); h.Current != 4 {
		t.Fatalf("restored health: %+v", h)
	}

	f.log.RequestRollback(1)
	if err := f.log.DrainRollbacks(f.w); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if !d.OwnedBy(2) || healthOf(t, f.w, f.defender).Current != 2 {
		t.Fatalf("capture not undone: %+v", d)
	}
}

func TestBattleInvalid(t *testing.T) {
	f := newFixture(t, 10, OnDeath{Kind: Destroy})
	before := len(f.log.Applied())

	// the rifleman has no attack power
	if _, _, err := Plan(f.w, nil, f.defender, f.attacker); !errors.Is(err, commands.ErrBattleInvalid) {
		t.Fatalf("expected battle invalid, got %v", err)
	}
	if err := f.w.UpdateObject(f.defender, func(o *objects.Object) error {
		return objects.SetComponent(o, NonAttackableComponent, true)
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, _, err := Plan(f.w, nil, f.attacker, f.defender); !errors.Is(err, commands.ErrBattleInvalid) {
		t.Fatalf("expected battle invalid, got %v", err)
	}
	if len(f.log.Applied()) != before || len(f.log.Pending()) != 0 {
		t.Fatalf("battle errors must not touch the log")
	}
}

func TestInvulnerableTakesNoDamage(t *testing.T) {
	f := newFixture(t, 10, OnDeath{Kind: Destroy})
	if err := f.w.UpdateObject(f.defender, func(o *objects.Object) error {
		return objects.SetComponent(o, InvulnerableComponent, true)
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	_, res, err := Plan(f.w, nil, f.attacker, f.defender)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if res.Damage != 0 || res.Killed {
		t.Fatalf("result: %+v", res)
	}
}

func TestDamageRecordRoundTrip(t *testing.T) {
	rec := commands.Record{Command: &DamageObject{Object: 7, Amount: 2}, Timestamp: 10}
	env, err := commands.Encode(rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := commands.Decode(env)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	d, ok := back.Command.(*DamageObject)
	if !ok || d.Object != 7 || d.Amount != 2 {
		t.Fatalf("decoded: %#v", back.Command)
	}
}

func TestRegisterProjectsCombatComponents(t *testing.T) {
	c := state.DefaultComponents()
	if err := Register(c); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := Register(c); err == nil {
		t.Fatalf("second registration should collide")
	}

	f := newFixture(t, 10, OnDeath{Kind: Destroy})
	p := state.NewProjector(c, nil)
	evs, err := p.EntireState(f.w, nil)
	if err != nil {
		t.Fatalf("entire state: %v", err)
	}
	for _, ev := range evs {
		if ev.Entity != world.ObjectKey(f.defender) {
			continue
		}
		for _, cd := range ev.Components {
			if cd.ID != IDHealth {
				continue
			}
			h, err := state.DecodeAs[Health](cd)
			if err != nil {
				t.Fatalf("decode health: %v", err)
			}
			if h.Current != 10 {
				t.Fatalf("defender health = %+v", h)
			}
			return
		}
	}
	t.Fatalf("defender health not projected")
}
