package treesync

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound matches every *NotFoundError via errors.Is.
	ErrNotFound = errors.New("path not found")
	// ErrTypeMismatch matches every *TypeMismatchError via errors.Is.
	ErrTypeMismatch = errors.New("path type mismatch")
)

// Side names the filesystem a path lives on.
type Side string

const (
	Local  Side = "local"
	Remote Side = "remote"
)

// NotFoundError is returned when a transfer's source path does not exist.
// Destination is the path the transfer was aimed at.
type NotFoundError struct {
	Side        Side
	Path        string
	Destination string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("cannot transfer %s to %s: %s path does not exist", e.Path, e.Destination, e.Side)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// TypeMismatchError is returned when the kinds of source and destination
// rule out a transfer, such as a directory onto an existing file.
type TypeMismatchError struct {
	Source      string
	Destination string
	Reason      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("cannot transfer %s to %s: %s", e.Source, e.Destination, e.Reason)
}

func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}
