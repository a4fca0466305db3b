package model

import "github.com/pkg/errors"

// NotFoundError is returned when a target (source file, native symbol,
// call node path) can't be resolved in a thread.
type NotFoundError struct{ Err error }

func (e NotFoundError) Error() string { return e.Err.Error() }

func (e NotFoundError) Unwrap() error { return e.Err }

func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var v NotFoundError
	return errors.As(err, &v)
}

// ValidationError reports a malformed table: broken topological
// order or a dangling cross-table reference.
type ValidationError struct{ Err error }

func (e ValidationError) Error() string { return e.Err.Error() }

func (e ValidationError) Unwrap() error { return e.Err }

func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var v ValidationError
	return errors.As(err, &v)
}
