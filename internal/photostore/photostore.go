package photostore

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("photo not found")

// PhotoStore keeps task photos. Handles returned by Copy are opaque to
// callers and are passed back unchanged to the other methods.
type PhotoStore interface {
	// Copy duplicates the file at source into namespace/name, replacing any
	// previous file with that name, and returns the stored handle.
	Copy(ctx context.Context, source, namespace, name string) (handle string, err error)
	Exists(ctx context.Context, handle string) (bool, error)
	Get(ctx context.Context, handle string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, handle string) error
	// Rename moves the photo at handle to name within the same namespace,
	// replacing any file already there, and returns the new handle.
	Rename(ctx context.Context, handle, name string) (string, error)
}
