package element

import (
	"errors"
	"fmt"
)

// ConfigError is a configuration error: a request to build or rewire a
// graph that cannot be honored. The call that returns it has not changed
// any state.
//
// Configuration errors include:
//   - Unknown type: no factory registered for a type name
//   - Kind mismatch: connecting sockets that carry different kinds
//   - Fan-in: connecting an input that already has a link
//   - Cardinality: adding a socket beyond the declared maximum
//   - Self nesting: a package that would contain its own type
type ConfigError struct {
	// Code identifies the error category.
	Code ConfigErrorCode

	// Message is a human-readable description.
	Message string

	// Type is the element type involved, when there is one.
	Type string
}

// ConfigErrorCode categorizes configuration errors.
type ConfigErrorCode string

const (
	ErrCodeUnknownType   ConfigErrorCode = "UNKNOWN_TYPE"
	ErrCodeDuplicateType ConfigErrorCode = "DUPLICATE_TYPE"
	ErrCodeHashCollision ConfigErrorCode = "HASH_COLLISION"
	ErrCodeKindMismatch  ConfigErrorCode = "KIND_MISMATCH"
	ErrCodeFanIn         ConfigErrorCode = "FAN_IN"
	ErrCodeCardinality   ConfigErrorCode = "CARDINALITY"
	ErrCodeNoSuchElement ConfigErrorCode = "NO_SUCH_ELEMENT"
	ErrCodeNoSuchSocket  ConfigErrorCode = "NO_SUCH_SOCKET"
	ErrCodeNoSuchLink    ConfigErrorCode = "NO_SUCH_LINK"
	ErrCodeSelfNesting   ConfigErrorCode = "SELF_NESTING"
	ErrCodeBadConfig     ConfigErrorCode = "BAD_CONFIG"
)

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s: %s (type=%s)", e.Code, e.Message, e.Type)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Errorf builds a ConfigError with a formatted message.
func Errorf(code ConfigErrorCode, format string, args ...any) *ConfigError {
	return &ConfigError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// HasCode reports whether err is (or wraps) a ConfigError with the code.
func HasCode(err error, code ConfigErrorCode) bool {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// IsUnknownType returns true if no factory exists for the requested type.
func IsUnknownType(err error) bool { return HasCode(err, ErrCodeUnknownType) }

// IsKindMismatch returns true if a link joined sockets of different kinds.
func IsKindMismatch(err error) bool { return HasCode(err, ErrCodeKindMismatch) }

// IsFanIn returns true if an already connected input was connected again.
func IsFanIn(err error) bool { return HasCode(err, ErrCodeFanIn) }

// IsCardinality returns true if a socket limit was exceeded.
func IsCardinality(err error) bool { return HasCode(err, ErrCodeCardinality) }

// IsSelfNesting returns true if a package would contain its own type.
func IsSelfNesting(err error) bool { return HasCode(err, ErrCodeSelfNesting) }
