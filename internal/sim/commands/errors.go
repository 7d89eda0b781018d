package commands

import (
	"errors"
	"fmt"
)

const (
	CodeMissingEntity    = "E_MISSING_ENTITY"
	CodeMissingComponent = "E_MISSING_COMPONENT"
	CodeConstraint       = "E_CONSTRAINT"
	CodeInvalidMove      = "E_INVALID_MOVE"
	CodeIrreversible     = "E_IRREVERSIBLE"
	CodeBattleInvalid    = "E_BATTLE_INVALID"
)

// Error is a defined command failure. Errors are data: the log discards the record
// and carries on, except for irreversible rollbacks.
type Error struct {
	Code   string
	Reason string
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return e.Code
	}
	return e.Code + ": " + e.Reason
}

// Is matches any Error with the same code, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrMissingEntity    = &Error{Code: CodeMissingEntity}
	ErrMissingComponent = &Error{Code: CodeMissingComponent}
	ErrConstraint       = &Error{Code: CodeConstraint}
	ErrInvalidMove      = &Error{Code: CodeInvalidMove}
	ErrIrreversible     = &Error{Code: CodeIrreversible}
	ErrBattleInvalid    = &Error{Code: CodeBattleInvalid}
)

func MissingEntity(format string, args ...any) error {
	return &Error{Code: CodeMissingEntity, Reason: fmt.Sprintf(format, args...)}
}

func MissingComponent(format string, args ...any) error {
	return &Error{Code: CodeMissingComponent, Reason: fmt.Sprintf(format, args...)}
}

func Constraint(format string, args ...any) error {
	return &Error{Code: CodeConstraint, Reason: fmt.Sprintf(format, args...)}
}

func InvalidMove(format string, args ...any) error {
	return &Error{Code: CodeInvalidMove, Reason: fmt.Sprintf(format, args...)}
}

func Irreversible(format string, args ...any) error {
	return &Error{Code: CodeIrreversible, Reason: fmt.Sprintf(format, args...)}
}

func BattleInvalid(format string, args ...any) error {
	return &Error{Code: CodeBattleInvalid, Reason: fmt.Sprintf(format, args...)}
}

// Code extracts the error code, or "" for errors that are not command errors.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
