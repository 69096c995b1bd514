package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a locator does not name a stored object.
var ErrNotFound = errors.New("storage: object not found")

// Object describes bytes handed to a Store.
type Object struct {
	// Name is the client supplied file name. Stores derive a safe object name from it.
	Name        string
	ContentType string
	Size        int64
}

// Stored is the result of a successful Save.
type Stored struct {
	Locator string // opaque, persisted with the owning record
	Name    string // generated object name
	Size    int64
}

// Store persists uploaded documents. Implementations are interchangeable; callers only keep
// the locator.
type Store interface {
	Save(ctx context.Context, obj Object, r io.Reader) (Stored, error)
	Open(ctx context.Context, locator string) (io.ReadCloser, error)
	Delete(ctx context.Context, locator string) error
	// URL resolves a locator into the path clients use to fetch the object.
	URL(locator string) string
}
