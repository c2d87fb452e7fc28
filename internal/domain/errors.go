package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrNoFill       = errors.New("no fill")
	ErrCancelled    = errors.New("execution cancelled")
	ErrDeadline     = errors.New("execution deadline reached")
	ErrInvalidQuote = errors.New("invalid quote data")
)

// PartialExecutionError reports a multi-leg execution where a leg failed
// after earlier legs filled. The engine performs no automatic rollback; the
// filled legs are carried here so the caller can reconcile.
type PartialExecutionError struct {
	OpportunityID string
	FailedLeg     int // priority of the leg that failed
	Filled        []Trade
	Err           error
}

// Error implements the error interface.
func (e *PartialExecutionError) Error() string {
	return fmt.Sprintf("partial execution of opportunity %s: leg %d failed with %d leg(s) already filled: %v",
		e.OpportunityID, e.FailedLeg, len(e.Filled), e.Err)
}

// Unwrap exposes the underlying leg failure.
func (e *PartialExecutionError) Unwrap() error {
	return e.Err
}
