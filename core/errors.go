package core

import "github.com/pkg/errors"

var (
	// ErrInvalidDate is returned when a due date fails to parse. It is never fatal:
	// callers treat the date as absent.
	ErrInvalidDate = errors.New("invalid date")

	// ErrOracleUnavailable is returned when the scoring oracle call fails. No partial
	// scores are committed when it is returned.
	ErrOracleUnavailable = errors.New("scoring is unavailable right now")

	// ErrMissingCredential refuses operations that require a signed-in student.
	ErrMissingCredential = errors.New("please sign in first")

	// ErrCorruptRecord marks a stored collection that failed to deserialize.
	ErrCorruptRecord = errors.New("corrupt persisted record")

	ErrNotFound          = errors.New("not found")
	ErrScoringInProgress = errors.New("scoring already in progress")
	ErrInvalidSortOrder  = errors.New("invalid sort order")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err *ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

func (err *ValidationError) Unwrap() error { return err.Err }

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
