package app

import "errors"

// ErrMissingPath is returned when an operation's input path is not configured.
var ErrMissingPath = errors.New("input path is required")

// InputError marks a failure caused by the user's input files: unreadable
// paths, invalid manifests or CI templates, conflicting fragment paths. The
// message is the wrapped error's.
type InputError struct {
	Err error
}

func (e *InputError) Error() string { return e.Err.Error() }

func (e *InputError) Unwrap() error { return e.Err }

func inputError(err error) error {
	if err == nil {
		return nil
	}
	return &InputError{Err: err}
}

// IsInputError reports whether err was caused by invalid input.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}
