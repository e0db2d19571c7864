package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure for retry and reporting decisions.
type Kind int

const (
	// Precondition means a required secret or setting is missing; retrying
	// without user action cannot succeed.
	Precondition Kind = iota
	// Transport means the network call to the model failed.
	Transport
	// ModelRejection means the model endpoint returned a non-success status
	// (authorization, rate limit, safety block).
	ModelRejection
	// Unparseable means repair, decode and fallback decode all failed.
	Unparseable
	// Invalid means the validation gate rejected a required field.
	Invalid
	// Persistence means the entity store rejected the write.
	Persistence
)

func (k Kind) String() string {
	switch k {
	case Precondition:
		return "precondition"
	case Transport:
		return "transport"
	case ModelRejection:
		return "model_rejection"
	case Unparseable:
		return "unparseable"
	case Invalid:
		return "invalid"
	case Persistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Error is a classified pipeline failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error

	// RateLimited marks a ModelRejection that may succeed after backoff.
	RateLimited bool
}

// New wraps err with a kind and the operation that produced it.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a classified error from a format string.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether retrying the same input could succeed.
// Unparseable and Invalid failures need a different source image, and
// Precondition failures need user action, so none of those retry.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case Transport, Persistence:
		return true
	case ModelRejection:
		return e.RateLimited
	default:
		return false
	}
}

// KindOf extracts the classification from an error chain.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}

// Is lets callers match on kind with errors.Is against a bare *Error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}
