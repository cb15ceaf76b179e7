package application

import "errors"

var (
	// ErrPersist wraps save store failures. In-memory state is kept.
	ErrPersist         = errors.New("persist save data")
	ErrInactive        = errors.New("gestation system is not active")
	ErrUnknownMutation = errors.New("unknown mutation")
)
