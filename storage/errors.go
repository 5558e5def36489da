package storage

import "errors"

var (
	ErrNotFound    = errors.New("storage: not found")
	ErrCorrupt     = errors.New("storage: corrupt store")
	ErrUnavailable = errors.New("storage: source unavailable")
	ErrImmutable   = errors.New("storage: immutable entry mismatch")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
