package core

import (
	"errors"
	"io/fs"
)

var (
	// ErrNotExist is returned when a file or directory does not exist.
	// Re-exported from io/fs for convenience.
	ErrNotExist = fs.ErrNotExist

	// ErrExist is returned when a file or directory already exists.
	ErrExist = fs.ErrExist

	// ErrUnsupported is returned when an operation is not supported by the
	// provider, such as Chtimes on a backend without timestamps.
	ErrUnsupported = errors.New("operation not supported")
)
