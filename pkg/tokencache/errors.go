package tokencache

import "errors"

// ErrLockTimeout is wrapped by IOError when the cache lock could not be acquired.
var ErrLockTimeout = errors.New("timed out acquiring token cache lock")

// errLocked reports a lock held by someone else; it is retried.
var errLocked = errors.New("token cache lock is held")

// IOError is a failure to read, write or lock persisted cache state.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return "token cache " + e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() error {
	return e.Err
}
