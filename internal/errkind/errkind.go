// Package errkind defines the closed set of error categories produced at
// the boundaries of the simulation analysis core, and the SimError type
// that carries one of them.
package errkind

import "fmt"

// Kind enumerates the error categories a boundary operation may report.
type Kind string

const (
	// InvalidInput marks malformed arguments: shape mismatch, negative n,
	// empty input, non-monotone axis.
	InvalidInput Kind = "invalid_input"
	// MissingData marks a required signal or axis absent from the result.
	MissingData Kind = "missing_data"
	// NumericFailure marks division by near-zero, log of a non-positive
	// magnitude in an unavoidable branch, or a required crossing not found.
	NumericFailure Kind = "numeric_failure"
	// DependencyFailure marks a composite metric propagating the error of
	// an underlying primitive it depends on.
	DependencyFailure Kind = "dependency_failure"
	// EvaluationError marks a math-expression parse or type error.
	EvaluationError Kind = "evaluation_error"
	// IoError marks a file write or read failure in the exporter/loader.
	IoError Kind = "io_error"
	// Cancelled marks a cooperative cancellation token having fired.
	Cancelled Kind = "cancelled"
)

// SimError is the concrete error type returned across package boundaries.
// Op names the failing operation (e.g. "lttb.Downsample"); Cause, when
// present, is wrapped and reachable via errors.Unwrap.
type SimError struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *SimError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Unwrap exposes the wrapped cause, if any, for errors.Is/errors.As.
func (e *SimError) Unwrap() error {
	return e.Cause
}

// New builds a SimError with no wrapped cause.
func New(kind Kind, op, message string) *SimError {
	return &SimError{Kind: kind, Op: op, Message: message}
}

// Wrap builds a SimError wrapping cause.
func Wrap(kind Kind, op, message string, cause error) *SimError {
	return &SimError{Kind: kind, Op: op, Message: message, Cause: cause}
}

// Invalid is a shorthand constructor for the InvalidInput kind.
func Invalid(op, message string) *SimError { return New(InvalidInput, op, message) }

// Missing is a shorthand constructor for the MissingData kind.
func Missing(op, message string) *SimError { return New(MissingData, op, message) }

// Numeric is a shorthand constructor for the NumericFailure kind.
func Numeric(op, message string) *SimError { return New(NumericFailure, op, message) }

// Dependency wraps an upstream primitive's failure as DependencyFailure.
func Dependency(op, message string, cause error) *SimError {
	return Wrap(DependencyFailure, op, message, cause)
}

// Eval is a shorthand constructor for the EvaluationError kind.
func Eval(op, message string) *SimError { return New(EvaluationError, op, message) }

// IO wraps an underlying I/O failure as IoError.
func IO(op, message string, cause error) *SimError {
	return Wrap(IoError, op, message, cause)
}

// CancelledErr builds a Cancelled SimError.
func CancelledErr(op string) *SimError {
	return New(Cancelled, op, "operation cancelled")
}
