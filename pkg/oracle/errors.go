package oracle

import (
	"errors"
	"fmt"
)

var errMalformedVerdict = errors.New("malformed oracle verdict")

// Error marks a failed or malformed oracle call. Callers recover per item:
// skip or flag the record, continue the batch.
type Error struct {
	Op     string
	reason error
}

func (e Error) Error() string {
	return fmt.Sprintf("oracle %s: %v", e.Op, e.reason)
}

func (e Error) Unwrap() error {
	return e.reason
}

func IsOracleError(err error) bool {
	var oe Error
	return errors.As(err, &oe)
}

func wrap(op string, err error) error {
	return Error{Op: op, reason: err}
}

func malformed(op string, detail string) error {
	return Error{Op: op, reason: fmt.Errorf("%s: %w", detail, errMalformedVerdict)}
}
