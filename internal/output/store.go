package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/local/pagesampler/internal/domain"
)

// Store persists encoded artifacts under a relative, slash separated path.
type Store interface {
	// Prepare makes sure the destination exists and is usable.
	Prepare(ctx context.Context) error
	// Write stores data at rel and returns the full location written.
	Write(ctx context.Context, rel string, data []byte) (string, error)
	// Location is the human readable destination root.
	Location() string
}

// LocalStore writes artifacts into a directory tree.
type LocalStore struct {
	Root string
}

// NewLocalStore returns a store rooted at root.
func NewLocalStore(root string) *LocalStore { return &LocalStore{Root: root} }

func (s *LocalStore) Location() string { return s.Root }

// Prepare creates the output root if absent.
func (s *LocalStore) Prepare(ctx context.Context) error {
	if err := os.MkdirAll(s.Root, 0o755); err != nil {
		return &domain.IOError{Path: s.Root, Reason: "create output folder", Err: err}
	}
	info, err := os.Stat(s.Root)
	if err != nil {
		return &domain.IOError{Path: s.Root, Reason: "stat output folder", Err: err}
	}
	if !info.IsDir() {
		return &domain.IOError{Path: s.Root, Reason: "output path is not a directory"}
	}
	return nil
}

// Write creates the parent directory on first use and replaces any earlier
// artifact atomically through a temporary file in the same directory.
func (s *LocalStore) Write(ctx context.Context, rel string, data []byte) (string, error) {
	dst := filepath.Join(s.Root, filepath.FromSlash(rel))
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &domain.EncodeError{Target: dst, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*.jpg")
	if err != nil {
		return "", &domain.EncodeError{Target: dst, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", &domain.EncodeError{Target: dst, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", &domain.EncodeError{Target: dst, Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return "", &domain.EncodeError{Target: dst, Err: err}
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return "", &domain.EncodeError{Target: dst, Err: err}
	}
	return dst, nil
}

// IsS3URL reports whether dest is an s3://bucket[/prefix] URL.
func IsS3URL(dest string) bool { return strings.HasPrefix(dest, "s3://") }

// ParseS3URL splits s3://bucket/prefix into bucket and prefix.
func ParseS3URL(dest string) (bucket, prefix string, err error) {
	p := strings.TrimPrefix(dest, "s3://")
	bucket, prefix, _ = strings.Cut(p, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("invalid s3 url: %s", dest)
	}
	return bucket, strings.Trim(prefix, "/"), nil
}
