package cleanup

import (
	"errors"
	"fmt"
)

// Kind classifies why a batch stopped.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindDeleteFailure
	KindBlocked
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindDeleteFailure:
		return "delete_failure"
	case KindBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching on the kind of an *Error.
var (
	ErrNotFound      = errors.New("path does not exist")
	ErrDeleteFailure = errors.New("delete failed")
	ErrBlocked       = errors.New("path is protected")
)

// Error identifies the path that stopped a batch. Error() is the message
// shown to clients; the OS or safety error is reachable through Unwrap.
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
	case ErrDeleteFailure:
		return e.Kind == KindDeleteFailure
	case ErrBlocked:
		return e.Kind == KindBlocked
	}
	return false
}

func notFound(path string, err error) *Error {
	return &Error{Kind: KindNotFound, Path: path, msg: fmt.Sprintf("Path does not exist: %s", path), err: err}
}

func deleteFailure(path string, isDir bool, err error) *Error {
	what := "file"
	if isDir {
		what = "directory"
	}
	return &Error{Kind: KindDeleteFailure, Path: path, msg: fmt.Sprintf("Failed to delete %s: %s", what, path), err: err}
}

func blocked(path string, err error) *Error {
	return &Error{Kind: KindBlocked, Path: path, msg: fmt.Sprintf("Path is protected: %s", path), err: err}
}
