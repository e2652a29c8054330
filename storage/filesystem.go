package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemStorage implements the Storage interface for interacting with
// the local filesystem.
type FilesystemStorage struct {
	Config Config
}

// NewFilesystemStorage implements the Storage interface for simple file
// system interactions.
func NewFilesystemStorage(config Config) *FilesystemStorage {
	return &FilesystemStorage{
		Config: config,
	}
}

// Write will write the data to the key under the storage root.
func (f *FilesystemStorage) Write(ctx context.Context, key string,
	body []byte) error {

	filename := f.buildPath(key)

	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}

	return os.WriteFile(filename, body, 0644)
}

// Read returns the data stored at the key.
func (f *FilesystemStorage) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.buildPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return data, nil
}

// Remove removes the object stored at the key.
func (f *FilesystemStorage) Remove(ctx context.Context, key string) error {
	if err := os.Remove(f.buildPath(key)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// List returns the keys of the objects under a path prefix.
func (f *FilesystemStorage) List(ctx context.Context, path string) ([]string, error) {
	dir := f.buildPath(path)

	var keys []string
	err := filepath.Walk(dir, func(name string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}

		key := strings.TrimPrefix(name, f.Config.Root)
		keys = append(keys, strings.TrimPrefix(key, string(os.PathSeparator)))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return keys, nil
}

func (f *FilesystemStorage) buildPath(key string) string {
	return filepath.Join(f.Config.Root, key)
}
