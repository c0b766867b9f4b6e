// Package storage abstracts the object store holding task booklets,
// attachments and submitted solutions.
package storage

import (
	"context"
	"io"
)

// Object is a stored file streamed back to a caller.
type Object struct {
	Reader      io.ReadCloser
	Size        int64
	ContentType string
}

// ObjectStore stores and retrieves files by key.
type ObjectStore interface {
	// Put stores the content under key, replacing any previous object.
	Put(ctx context.Context, key string, content io.Reader, size int64, contentType string) error

	// Get opens the object for reading. The caller closes the reader.
	Get(ctx context.Context, key string) (Object, error)

	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
