// Package archive keeps the latest copy of every fetched JMA document,
// gzip-compressed, on a local directory or an S3 bucket. The copies let a run
// be replayed without the network.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// ErrNotFound is returned when no copy exists for a document path.
var ErrNotFound = errors.New("archived document not found")

// Store is a flat key/value blob store.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Archive stores documents gzip-compressed under their feed path plus ".gz".
type Archive struct {
	store Store
}

// New wraps a blob store.
func New(store Store) *Archive {
	return &Archive{store: store}
}

// Put compresses and stores the document at path, replacing any previous copy.
func (a *Archive) Put(ctx context.Context, path string, data []byte) error {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return fmt.Errorf("compress %s: %w", path, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compress %s: %w", path, err)
	}
	if err := a.store.Put(ctx, key(path), buf.Bytes()); err != nil {
		return fmt.Errorf("archive %s: %w", path, err)
	}
	return nil
}

// Get returns the decompressed copy of the document at path.
func (a *Archive) Get(ctx context.Context, path string) ([]byte, error) {
	compressed, err := a.store.Get(ctx, key(path))
	if err != nil {
		return nil, fmt.Errorf("read archived %s: %w", path, err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", path, err)
	}
	defer zr.Close()
	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", path, err)
	}
	return data, nil
}

func key(path string) string {
	return path + ".gz"
}
