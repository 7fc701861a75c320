package models

import "errors"

var (
	// ErrObjectNotFound is returned by object stores when a key does not exist.
	ErrObjectNotFound = errors.New("object not found")
	// ErrObjectExists is returned by conditional writes that found the key taken.
	ErrObjectExists = errors.New("object already exists")
)

// ObjectInfo is one listed object.
type ObjectInfo struct {
	Key        string
	Generation int64
	Size       int64
}
