package agent

import "errors"

var (
	// ErrRecursionLimit is returned when an invocation needs more steps than RecursionLimit allows.
	ErrRecursionLimit = errors.New("recursion limit reached without a final answer")

	// ErrToolNotFound indicates the requested tool does not exist.
	// The loop reports it to the model as a tool result instead of failing.
	ErrToolNotFound = errors.New("tool not found")

	// ErrInvalidMessage is returned by State.Append for messages that would break the log.
	ErrInvalidMessage = errors.New("invalid message")
)
