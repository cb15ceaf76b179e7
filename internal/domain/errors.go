package domain

import "errors"

var (
	ErrInvalidGestationUnit = errors.New("invalid gestation unit")
	ErrInvalidGestationTime = errors.New("gestation time must be positive")
	ErrInvalidPointer       = errors.New("invalid json pointer")
)
