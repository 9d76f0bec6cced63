package scan

import (
	"errors"
	"fmt"
)

// Kind classifies a scan failure.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindUnresolvable
	KindReadFailure
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnresolvable:
		return "unresolvable"
	case KindReadFailure:
		return "read_failure"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching on the kind of a *Error.
var (
	ErrNotFound     = errors.New("path does not exist")
	ErrUnresolvable = errors.New("path cannot be resolved")
	ErrReadFailure  = errors.New("directory read failed")
)

// Error is returned by Scan. Its message is what clients display, so the
// underlying OS error is only reachable through Unwrap.
type Error struct {
	Kind Kind
	Path string
	msg  string
	err  error
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.err }

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrUnresolvable:
		return e.Kind == KindUnresolvable
	case ErrReadFailure:
		return e.Kind == KindReadFailure
	}
	return false
}

func notFound(path string, err error) *Error {
	return &Error{Kind: KindNotFound, Path: path, msg: fmt.Sprintf("Path does not exist: %s", path), err: err}
}

func unresolvable(path string, err error) *Error {
	return &Error{Kind: KindUnresolvable, Path: path, msg: fmt.Sprintf("Failed to resolve path: %s", path), err: err}
}

func readFailure(path, msg string, err error) *Error {
	return &Error{Kind: KindReadFailure, Path: path, msg: msg, err: err}
}
