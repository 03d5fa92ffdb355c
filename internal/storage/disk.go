package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// DiskBucket stores objects as files below a root directory.
type DiskBucket struct {
	root string
}

// NewDiskBucket creates root if needed.
func NewDiskBucket(root string) (*DiskBucket, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("storage: creating %s: %w", root, err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolving %s: %w", root, err)
	}
	return &DiskBucket{root: abs}, nil
}

// resolve maps an object path to a file path, refusing anything that would
// escape the root.
func (b *DiskBucket) resolve(objectPath string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(objectPath))
	if clean == string(filepath.Separator) {
		return "", fmt.Errorf("storage: empty object path")
	}
	full := filepath.Join(b.root, clean)
	if !strings.HasPrefix(full, b.root+string(filepath.Separator)) {
		return "", fmt.Errorf("storage: object path %q escapes bucket", objectPath)
	}
	return full, nil
}

// Upload writes to a temp file first so readers never see a partial object.
func (b *DiskBucket) Upload(ctx context.Context, objectPath string, body io.Reader, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	full, err := b.resolve(objectPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("storage: creating folder for %s: %w", objectPath, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return fmt.Errorf("storage: uploading %s: %w", objectPath, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return fmt.Errorf("storage: uploading %s: %w", objectPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: uploading %s: %w", objectPath, err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return fmt.Errorf("storage: uploading %s: %w", objectPath, err)
	}
	return nil
}

func (b *DiskBucket) Remove(ctx context.Context, objectPaths []string) error {
	var errs []error
	for _, p := range objectPaths {
		if err := ctx.Err(); err != nil {
			return err
		}
		full, err := b.resolve(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("storage: removing %s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

// Handler serves stored objects under PublicPrefix. Directory listings are
// not exposed.
func (b *DiskBucket) Handler() http.Handler {
	files := http.FileServer(http.Dir(b.root))
	return http.StripPrefix(strings.TrimSuffix(PublicPrefix, "/"), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	}))
}
