package hypem

import "encoding/json"

// Outcome classifies how a single pipeline step ended. Every outcome other
// than Found collapses to "absent" at the public boundary, but they stay
// distinct for logging, metrics and traces.
type Outcome int

const (
	// Skipped means the step was never attempted.
	Skipped Outcome = iota
	Found
	NotFound
	BadStatus
	TransportFailed
	ParseFailed
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	case BadStatus:
		return "bad_status"
	case TransportFailed:
		return "transport_failed"
	case ParseFailed:
		return "parse_failed"
	default:
		return "skipped"
	}
}

// MarshalJSON encodes the outcome as its name.
func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// Step is the result of one pipeline step: a payload when Outcome is Found,
// otherwise the reason it is absent. Err carries the underlying cause for
// logging and is never returned to callers of Resolve.
type Step[T any] struct {
	Value   T
	Outcome Outcome
	Err     error
}

// OK reports whether the step produced a value.
func (s Step[T]) OK() bool {
	return s.Outcome == Found
}

func found[T any](v T) Step[T] {
	return Step[T]{Value: v, Outcome: Found}
}

func failed[T any](o Outcome, err error) Step[T] {
	return Step[T]{Outcome: o, Err: err}
}
