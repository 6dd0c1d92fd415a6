package domain

import "fmt"

// SaveState is the lifecycle of an optimistically saved quote.
//
// Transitions:
//   - Confirmed: durable in the remote store (or delivered by it). Zero value.
//   - Pending: inserted locally, remote transaction in flight.
//   - RolledBack: the remote transaction failed; the entry is being removed.
//
// Only Pending -> Confirmed and Pending -> RolledBack are legal. Everything
// else (confirming twice, rolling back a confirmed entry, skipping Pending)
// is a programming error surfaced as ErrConflict.
type SaveState int

const (
	SaveConfirmed SaveState = iota
	SavePending
	SaveRolledBack
)

// String returns a human-readable name for the state.
func (s SaveState) String() string {
	switch s {
	case SaveConfirmed:
		return "confirmed"
	case SavePending:
		return "pending"
	case SaveRolledBack:
		return "rolled-back"
	default:
		return "unknown"
	}
}

// Transition validates a state change and returns the new state.
// Illegal transitions return ErrConflict-class errors and leave the caller's
// state untouched.
func (s SaveState) Transition(to SaveState) (SaveState, error) {
	if s == SavePending && (to == SaveConfirmed || to == SaveRolledBack) {
		return to, nil
	}

	return s, NewConflictError("saved quote",
		fmt.Sprintf("illegal save transition %s -> %s", s, to))
}
