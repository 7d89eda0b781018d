package combat

import "gridtactics.dev/internal/sim/state"

// Component ids used when combat data is projected to players.
const (
	IDHealth   state.ComponentID = 16
	IDAttack   state.ComponentID = 17
	IDAttacked state.ComponentID = 18
)

// Register makes health, attack power and the attacked marker part of state events.
func Register(c *state.Components) error {
	if err := state.RegisterObjectComponent[Health](c, IDHealth, HealthComponent); err != nil {
		return err
	}
	if err := state.RegisterObjectComponent[Attack](c, IDAttack, AttackComponent); err != nil {
		return err
	}
	return state.RegisterObjectComponent[bool](c, IDAttacked, AttackedComponent)
}
