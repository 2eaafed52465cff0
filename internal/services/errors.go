package services

import (
	"errors"
	"fmt"
)

// Service-level error taxonomy. Handlers map these onto HTTP statuses;
// repository faults are wrapped, never passed through raw.
var (
	// ErrValidation covers bad input: negative weights, invalid stages or
	// statuses, over-consumption of a lot, duplicate batch identifiers.
	ErrValidation = errors.New("validation error")

	// ErrGenerationExhausted means the batch identifier generator hit its
	// attempt bound. Retryable with a different supplier/date/weight.
	ErrGenerationExhausted = errors.New("batch identifier generation exhausted")

	// ErrConsistency flags an invariant violation detected mid-operation,
	// e.g. restoring a run input whose lot no longer exists. The enclosing
	// transaction is aborted.
	ErrConsistency = errors.New("consistency error")

	// ErrFieldToken rejects a field intake request whose access token is
	// missing, unknown, revoked or expired. Deliberately unspecific about
	// which.
	ErrFieldToken = errors.New("field access token rejected")
)

func validationErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func consistencyErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConsistency, fmt.Sprintf(format, args...))
}
