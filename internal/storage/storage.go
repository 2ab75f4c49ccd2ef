package storage

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// BlobStore persists raw payloads under opaque keys.
//
// Put writes data below dir ("" for the store root) and returns a key that
// has never been handed out before. Delete of an absent key is not an error.
type BlobStore interface {
	Put(ctx context.Context, dir, suggestedName string, data io.Reader) (key string, size int64, err error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// DirStore is implemented by blob stores that can back folders with a
// physical directory. RemoveDir removes everything below key and is a no-op
// when the directory does not exist.
type DirStore interface {
	MakeDir(ctx context.Context, parentDir string) (key string, err error)
	RemoveDir(ctx context.Context, key string) error
}

const maxExtLen = 16

// newKey builds a fresh key: the original extension is kept so the blob
// stays recognisable on disk, the rest is a random UUID. Root level keys are
// sharded by the first two characters of the UUID.
func newKey(dir, suggestedName string) string {
	id := uuid.NewString()
	name := id + safeExt(suggestedName)
	if dir == "" {
		return path.Join(id[:2], name)
	}
	return path.Join(dir, name)
}

func safeExt(name string) string {
	ext := path.Ext(strings.ReplaceAll(name, "\\", "/"))
	if len(ext) < 2 || len(ext) > maxExtLen {
		return ""
	}
	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return ""
		}
	}
	return ext
}

// countingReader counts bytes flowing through it.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
