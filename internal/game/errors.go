package game

import "errors"

// Error taxonomy for rejected transitions. The gateway matches these with
// errors.Is and reports a code to the offending caller only; rejected
// transitions never mutate session state.
var (
	// ErrNotFound is returned when a room, category, clue, or player does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the caller lacks the required
	// authority (not host, not the current selector, not the owed
	// answerer).
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidState is returned when the action is not legal given the
	// current clue state, e.g. selecting a clue while one is open or
	// re-selecting a used clue.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidTransition is returned when the action is not legal in the
	// current session status, e.g. starting a game that is not in lobby.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrPreconditionFailed is returned when start is requested while
	// players are not ready.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrConflict is returned when buzzing after a winner exists or
	// answering outside your answer window.
	ErrConflict = errors.New("conflict")

	// ErrInvalidArgument is returned for malformed payloads, unknown host
	// actions, and out-of-range wagers.
	ErrInvalidArgument = errors.New("invalid argument")
)

// ErrorCode maps a session error to the wire code sent back to the caller.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrPreconditionFailed):
		return "precondition_failed"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	default:
		return "internal"
	}
}
