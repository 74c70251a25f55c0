// Package storage talks to the object store holding quiz media.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrNotFound is returned when an object does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrExists is returned when an upload or move would overwrite an object.
	ErrExists = errors.New("object already exists")
)

// Object is an entry returned by List.
type Object struct {
	Name      string     `json:"name"`
	ID        string     `json:"id,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// ListOptions controls a List call.
type ListOptions struct {
	Limit  int
	Offset int

	// SortColumn is one of name, created_at or updated_at.
	SortColumn string
	Descending bool
}

// Store is a bucket of objects addressed by slash separated paths.
type Store interface {
	// Upload stores body at path and returns its public URL.
	Upload(ctx context.Context, path string, body io.Reader, contentType string) (string, error)
	Move(ctx context.Context, from, to string) error
	Remove(ctx context.Context, paths ...string) error

	// List returns the direct children of the folder prefix.
	List(ctx context.Context, prefix string, opts ListOptions) ([]Object, error)
}
