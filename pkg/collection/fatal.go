package collection

import "fmt"

// FatalError marks a non-recoverable condition: invalid timestamp
// ordering, multiplicity overflow, or an operator invariant violation (a
// key missing from an index that must contain it). These are never used
// as control flow for ordinary data conditions — only code paths that
// indicate a client or engine bug raise them. Nothing in the engine
// recovers this panic, so it ends the process with its message unless a
// caller recovers it.
type FatalError struct {
	Msg string
}

func (e FatalError) Error() string { return e.Msg }

// Abort raises a FatalError. Callers throughout pkg/collection and
// internal/dataflow use this instead of returning an error for
// conditions that indicate an engine/client bug rather than a
// recoverable data condition.
func Abort(format string, args ...any) {
	panic(FatalError{Msg: fmt.Sprintf(format, args...)})
}
