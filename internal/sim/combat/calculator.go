package combat

import (
	"gridtactics.dev/internal/sim/commands"
	"gridtactics.dev/internal/sim/ids"
	"gridtactics.dev/internal/sim/objects"
	"gridtactics.dev/internal/sim/players"
	"gridtactics.dev/internal/sim/world"
)

// Result is the outcome of one attack. It is computed before anything changes.
type Result struct {
	Attacker ids.ObjectID `json:"attacker"`
	Defender ids.ObjectID `json:"defender"`
	Damage   uint32       `json:"damage"`
	Killed   bool         `json:"killed"`
}

// Calculator resolves an attack without mutating the world.
type Calculator interface {
	Resolve(w *world.World, attacker, defender ids.ObjectID) (Result, error)
}

// BasicCalculator deals the attacker's power against the defender's type.
type BasicCalculator struct{}

func (BasicCalculator) Resolve(w *world.World, attacker, defender ids.ObjectID) (Result, error) {
	a, ok := w.Object(attacker)
	if !ok {
		return Result{}, commands.BattleInvalid("attacker %s not found", attacker)
	}
	d, ok := w.Object(defender)
	if !ok {
		return Result{}, commands.BattleInvalid("defender %s not found", defender)
	}
	atk, ok := objects.GetComponent[Attack](a, AttackComponent)
	if !ok {
		return Result{}, commands.BattleInvalid("attacker %s has no %s", attacker, AttackComponent)
	}
	if d.HasComponent(NonAttackableComponent) {
		return Result{}, commands.BattleInvalid("defender %s cannot be attacked", defender)
	}
	h, err := health(d)
	if err != nil {
		return Result{}, commands.BattleInvalid("%v", err)
	}
	res := Result{Attacker: attacker, Defender: defender}
	if !d.HasComponent(InvulnerableComponent) {
		res.Damage = atk.PowerAgainst(d.Type)
	}
	h.TakeDamage(res.Damage)
	res.Killed = h.Dead()
	return res, nil
}

// Plan resolves an attack and returns the command that applies it: damage, an
// attacked marker on the attacker, and the defender's death handling when it dies.
func Plan(w *world.World, calc Calculator, attacker, defender ids.ObjectID) (*commands.Sequence, Result, error) {
	if calc == nil {
		calc = BasicCalculator{}
	}
	res, err := calc.Resolve(w, attacker, defender)
	if err != nil {
		return nil, Result{}, err
	}
	steps := []commands.Command{
		&DamageObject{Object: defender, Amount: res.Damage},
		&MarkAttacked{Object: attacker},
	}
	if res.Killed {
		d, _ := w.Object(defender)
		h, _ := health(d)
		switch h.OnDeath.Kind {
		case Capture:
			a, _ := w.Object(attacker)
			var to players.ID
			if a.Owner != nil {
				to = a.Owner.Player
			}
			steps = append(steps, &CaptureObject{Object: defender, NewOwner: to, RestoreAt: h.OnDeath.RestoreAt})
		default:
			steps = append(steps, &commands.DespawnObject{Object: defender})
		}
	}
	return &commands.Sequence{Steps: steps}, res, nil
}
