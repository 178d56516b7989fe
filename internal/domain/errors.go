package domain

import "errors"

// Domain errors
var (
	ErrViewerNotFound  = errors.New("viewer profile not found")
	ErrProfileNotFound = errors.New("profile not found")
	ErrNoCourseRecord  = errors.New("no record for course")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrInternalError   = errors.New("internal server error")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrViewerNotFound) || errors.Is(err, ErrProfileNotFound) || errors.Is(err, ErrNoCourseRecord)
}
