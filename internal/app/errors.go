package app

import (
	"fmt"

	"github.com/dkeye/huddle/internal/domain"
)

// ValidationError rejects a malformed request before any side effect.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// UnreachableTargetError means the resolved target has no live
// connection. Reported to the initiator only, never fatal.
type UnreachableTargetError struct {
	Target string
}

func (e *UnreachableTargetError) Error() string {
	return fmt.Sprintf("target %s unreachable", e.Target)
}

// PersistenceError wraps a store failure. The operation is aborted
// before any broadcast so nothing non-durable ever fans out.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// StateConflictError rejects a call transition not legal from the
// attempt's current state. The state is left unchanged.
type StateConflictError struct {
	Room  domain.RoomID
	Op    string
	State CallState
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("cannot %s call %s in state %s", e.Op, e.Room, e.State)
}
