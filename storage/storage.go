package storage

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound should be returned if the object was not found.
	ErrNotFound = errors.New("Not found")
)

// Storage is the interface combining all storage interfaces.
type Storage interface {
	ReadWriter
	Remover
	List
}

// ReadWriter interface combines the Reader and Writer interface.
type ReadWriter interface {
	Reader
	Writer
}

// Reader interface is for retrieving items from the store.
type Reader interface {
	Read(context.Context, string) ([]byte, error)
}

// Writer interface is for adding or updating an item to the store.
type Writer interface {
	Write(context.Context, string, []byte) error
}

// Remover interface is for removing an item from storage.
type Remover interface {
	Remove(context.Context, string) error
}

// List interface is for returning the keys under a path prefix.
type List interface {
	List(context.Context, string) ([]string, error)
}

// CreateStorage builds an appropriate Storage from the details. The
// "standalone" bucket is the local filesystem under root; "mock" is in
// memory.
func CreateStorage(bucket, root string) (Storage, error) {
	switch bucket {
	case "", "standalone":
		return NewFilesystemStorage(Config{Bucket: bucket, Root: root}), nil
	case "mock":
		return NewMockStorage(), nil
	}
	return nil, errors.Errorf("Unsupported storage bucket : %s", bucket)
}
