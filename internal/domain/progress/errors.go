package progress

import "errors"

var (
	ErrInvalidEvent     = errors.New("invalid event")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrCourseMismatch   = errors.New("course does not match batch")
)
