package argtype

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a token or descriptor was rejected.
type ErrorKind int

const (
	// KindFormat means the token is lexically wrong for the type.
	KindFormat ErrorKind = iota
	// KindValidation means the token is well formed but not acceptable
	// (out of range, not an allowed choice, failed filesystem probe).
	KindValidation
	// KindCardinality means an argument was seen the wrong number of times.
	KindCardinality
	// KindPrefixMismatch means a literal prefix did not match.
	KindPrefixMismatch
	// KindDescriptorFormat means a wire signature is malformed.
	KindDescriptorFormat
)

// String returns the kind name used in error messages.
func (k ErrorKind) String() string {
	switch k {
	case KindFormat:
		return "format"
	case KindValidation:
		return "validation"
	case KindCardinality:
		return "cardinality"
	case KindPrefixMismatch:
		return "prefix mismatch"
	case KindDescriptorFormat:
		return "descriptor format"
	default:
		return "unknown"
	}
}

// Severity tells the resolver what to do with a failed candidate.
type Severity int

const (
	// SeverityHard aborts the current candidate and is kept for diagnostics.
	SeverityHard Severity = iota
	// SeveritySoft means the candidate is simply not what the user meant.
	SeveritySoft
)

// Sentinel errors, one per kind, for use with errors.Is.
var (
	ErrFormat           = errors.New("invalid argument format")
	ErrValidation       = errors.New("invalid argument value")
	ErrCardinality      = errors.New("wrong number of arguments")
	ErrPrefixMismatch   = errors.New("prefix mismatch")
	ErrDescriptorFormat = errors.New("invalid command descriptor")
)

// Error is the typed failure returned by validation and signature loading.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error of the same kind.
func (e *Error) Is(target error) bool {
	return target == e.sentinel()
}

// Severity reports whether the failure should abort the candidate.
func (e *Error) Severity() Severity {
	if e.Kind == KindPrefixMismatch {
		return SeveritySoft
	}
	return SeverityHard
}

func (e *Error) sentinel() error {
	switch e.Kind {
	case KindFormat:
		return ErrFormat
	case KindValidation:
		return ErrValidation
	case KindCardinality:
		return ErrCardinality
	case KindPrefixMismatch:
		return ErrPrefixMismatch
	case KindDescriptorFormat:
		return ErrDescriptorFormat
	}
	return nil
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// FormatError builds a KindFormat error.
func FormatError(format string, args ...any) *Error {
	return newError(KindFormat, format, args...)
}

// ValidationError builds a KindValidation error.
func ValidationError(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

// CardinalityError builds a KindCardinality error.
func CardinalityError(format string, args ...any) *Error {
	return newError(KindCardinality, format, args...)
}

// DescriptorError builds a KindDescriptorFormat error.
func DescriptorError(format string, args ...any) *Error {
	return newError(KindDescriptorFormat, format, args...)
}

// IsSoft reports whether err is an argument error of soft severity.
func IsSoft(err error) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Severity() == SeveritySoft
	}
	return false
}
