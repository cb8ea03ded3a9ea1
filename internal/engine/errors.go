package engine

import (
	"errors"
	"fmt"
)

// RuntimeError is an error detected while the engine is running, as
// opposed to a configuration error returned by a graph edit.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Tick is the tick during which the error happened.
	Tick int64

	// Command names the queued command that failed, if any.
	Command string

	// Err is the underlying cause.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeCommandFailed indicates a queued command returned an error.
	ErrCodeCommandFailed RuntimeErrorCode = "COMMAND_FAILED"

	// ErrCodeStopped indicates a command was submitted after Stop.
	ErrCodeStopped RuntimeErrorCode = "STOPPED"

	// ErrCodeDiverged indicates a replayed run produced different outputs.
	ErrCodeDiverged RuntimeErrorCode = "REPLAY_DIVERGED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Command != "" {
		return fmt.Sprintf("%s: %s (tick=%d, command=%s)", e.Code, msg, e.Tick, e.Command)
	}
	return fmt.Sprintf("%s: %s (tick=%d)", e.Code, msg, e.Tick)
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error { return e.Err }

// IsCommandError returns true if err is a failed queued command.
// Uses errors.As to handle wrapped errors.
func IsCommandError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeCommandFailed
	}
	return false
}

// IsDivergence returns true if err reports a replay divergence.
func IsDivergence(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeDiverged
	}
	return false
}

// TickBudgetExceededError is returned by Run when the engine reaches its
// maximum number of ticks.
type TickBudgetExceededError struct {
	Ticks int64 // Ticks completed
	Limit int64 // Configured maximum
}

// Error implements the error interface.
func (e *TickBudgetExceededError) Error() string {
	return fmt.Sprintf("tick budget exhausted: %d ticks >= %d limit", e.Ticks, e.Limit)
}

// IsTickBudgetExceeded returns true if err is a TickBudgetExceededError.
// Uses errors.As to handle wrapped errors.
func IsTickBudgetExceeded(err error) bool {
	var te *TickBudgetExceededError
	return errors.As(err, &te)
}
