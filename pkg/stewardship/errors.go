package stewardship

import "errors"

// ErrStateConflict is returned when a transition targets a golden record
// already moved to a terminal status by another reviewer. The operation
// has no effect.
var ErrStateConflict = errors.New("golden record is not pending review")

type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
