package storage

import (
	"bytes"
	"context"
	"testing"

	"github.com/pkg/errors"
)

func Test_FilesystemStorage(t *testing.T) {
	ctx := context.Background()
	store := NewFilesystemStorage(NewConfig("standalone", t.TempDir()))

	payload := []byte("stored payload bytes")
	if err := store.Write(ctx, "payloads/sometxid", payload); err != nil {
		t.Fatalf("failed to write : %s", err)
	}

	read, err := store.Read(ctx, "payloads/sometxid")
	if err != nil {
		t.Fatalf("failed to read : %s", err)
	}
	if !bytes.Equal(read, payload) {
		t.Fatalf("read doesn't match")
	}

	keys, err := store.List(ctx, "payloads")
	if err != nil {
		t.Fatalf("failed to list : %s", err)
	}
	if len(keys) != 1 || keys[0] != "payloads/sometxid" {
		t.Fatalf("wrong keys : %v", keys)
	}

	if err := store.Remove(ctx, "payloads/sometxid"); err != nil {
		t.Fatalf("failed to remove : %s", err)
	}
	if _, err := store.Read(ctx, "payloads/sometxid"); errors.Cause(err) != ErrNotFound {
		t.Fatalf("expected not found : got %v", err)
	}
}

func Test_FilesystemStorage_MissingKey(t *testing.T) {
	ctx := context.Background()
	store := NewFilesystemStorage(NewConfig("standalone", t.TempDir()))

	if _, err := store.Read(ctx, "nope"); errors.Cause(err) != ErrNotFound {
		t.Fatalf("expected not found : got %v", err)
	}
	if err := store.Remove(ctx, "nope"); errors.Cause(err) != ErrNotFound {
		t.Fatalf("expected not found : got %v", err)
	}

	// Listing an empty prefix is empty, not an error.
	keys, err := store.List(ctx, "payloads")
	if err != nil {
		t.Fatalf("failed to list : %s", err)
	}
	if len(keys) != 0 {
		t.Fatalf("unexpected keys : %v", keys)
	}
}

func Test_MockStorage(t *testing.T) {
	ctx := context.Background()
	store := NewMockStorage()

	if err := store.Write(ctx, "a/b", []byte("x")); err != nil {
		t.Fatalf("failed to write : %s", err)
	}

	read, err := store.Read(ctx, "a/b")
	if err != nil {
		t.Fatalf("failed to read : %s", err)
	}
	if !bytes.Equal(read, []byte("x")) {
		t.Fatalf("read doesn't match")
	}

	// Mutating the returned slice must not touch the stored copy.
	read[0] = 'y'
	again, _ := store.Read(ctx, "a/b")
	if !bytes.Equal(again, []byte("x")) {
		t.Fatalf("stored copy mutated")
	}

	if err := store.Remove(ctx, "a/b"); err != nil {
		t.Fatalf("failed to remove : %s", err)
	}
	if err := store.Remove(ctx, "a/b"); errors.Cause(err) != ErrNotFound {
		t.Fatalf("expected not found : got %v", err)
	}
}
