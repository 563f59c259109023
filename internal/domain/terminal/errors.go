package terminal

import "errors"

var (
	// ErrPty means pty allocation or process spawn failed.
	ErrPty = errors.New("pty failure")
	// ErrIO means reading from or writing to a live process failed.
	ErrIO                  = errors.New("io failure")
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionNameNotFound = errors.New("session name not found")
	ErrSessionExists       = errors.New("session already exists")
	ErrMaxSessions         = errors.New("max sessions reached")
	ErrTimeout             = errors.New("timeout waiting for output")
	ErrInvalidConfig       = errors.New("invalid session config")
)

// IsNotFound reports whether err is a missing session, by ID or by name.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionNameNotFound)
}

// IsConflict reports whether err is a name collision or a capacity rejection.
func IsConflict(err error) bool {
	return errors.Is(err, ErrSessionExists) || errors.Is(err, ErrMaxSessions)
}
