// Package fsops isolates the destructive filesystem calls made by the
// eraser so tests can observe or fail them.
package fsops

import "os"

// Deleter removes a single entry or a whole tree.
type Deleter interface {
	Remove(path string) error
	RemoveAll(path string) error
}

// OSDeleter deletes through the os package.
type OSDeleter struct{}

func (OSDeleter) Remove(path string) error { return os.Remove(path) }

// RemoveAll removes a symlink named by path rather than its target.
func (OSDeleter) RemoveAll(path string) error { return os.RemoveAll(path) }
