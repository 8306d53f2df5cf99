// Package blob stores the actual image bytes, one object per image, named
// <id>.<ext>. The catalog is the only writer; objects are immutable between
// ingest and delete.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the requested object does not exist.
var ErrNotFound = errors.New("blob not found")

// Store persists raw image bytes under stable paths.
//
// Write and MoveIn return the canonical path recorded on the image row; Read
// and Delete accept that same path back. Paths are backend-specific (an
// absolute filesystem path for the local store, an s3:// URL for the S3
// store) and opaque to callers.
type Store interface {
	// Write stores data under <id>.<ext> and returns the canonical path.
	Write(ctx context.Context, id, ext string, data []byte) (string, error)

	// MoveIn ingests an existing local file, consuming it on success.
	MoveIn(ctx context.Context, id, ext, srcPath string) (string, error)

	// Read returns the stored bytes for a path previously returned by
	// Write or MoveIn.
	Read(ctx context.Context, path string) ([]byte, error)

	// Delete removes the object. Deleting a missing object is an error.
	Delete(ctx context.Context, path string) error
}

// Type selects the blob store backend.
type Type string

const (
	// TypeLocal stores objects on the local filesystem (default).
	TypeLocal Type = "local"

	// TypeS3 stores objects in an S3 (or S3-compatible) bucket.
	TypeS3 Type = "s3"
)
