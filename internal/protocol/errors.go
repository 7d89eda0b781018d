package protocol

import "gridtactics.dev/internal/sim/commands"

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion    = "E_PROTO_VERSION"

	// Session routing.
	ErrUnknownPlayer = "E_UNKNOWN_PLAYER"
	ErrPlayerBusy    = "E_PLAYER_BUSY"
	ErrGameBusy      = "E_GAME_BUSY"

	// Rule/command layer.
	ErrBadRequest       = "E_BAD_REQUEST"
	ErrNoPermission     = "E_NO_PERMISSION"
	ErrNotYourTurn      = "E_NOT_YOUR_TURN"
	ErrMissingEntity    = commands.CodeMissingEntity
	ErrMissingComponent = commands.CodeMissingComponent
	ErrConstraint       = commands.CodeConstraint
	ErrInvalidMove      = commands.CodeInvalidMove
	ErrIrreversible     = commands.CodeIrreversible
	ErrBattleInvalid    = commands.CodeBattleInvalid
	ErrInternal         = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:  {},
	ErrProtoVersion:     {},
	ErrUnknownPlayer:    {},
	ErrPlayerBusy:       {},
	ErrGameBusy:         {},
	ErrBadRequest:       {},
	ErrNoPermission:     {},
	ErrNotYourTurn:      {},
	ErrMissingEntity:    {},
	ErrMissingComponent: {},
	ErrConstraint:       {},
	ErrInvalidMove:      {},
	ErrIrreversible:     {},
	ErrBattleInvalid:    {},
	ErrInternal:         {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// CodeFor maps a runtime error onto a wire code. Command errors keep their own
// code; anything else is reported as fallback.
func CodeFor(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if c := commands.Code(err); c != "" {
		return c
	}
	return fallback
}
