// Package sources turns user inputs into the ordered image references the
// pipeline consumes. Inputs may be local paths, gs:// object URIs, directories
// or bucket prefixes, and PDF documents whose embedded images are extracted.
package sources

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Lllllllleong/slidedeckflow/internal/gcp"
)

// ErrNoImages is returned when a directory or prefix holds no image files.
var ErrNoImages = errors.New("no image files found")

// ErrInvalidPDF is returned when a PDF input cannot be parsed.
var ErrInvalidPDF = errors.New("invalid PDF")

// ErrNoObjectStore is returned for gs:// inputs when no object store is set.
var ErrNoObjectStore = errors.New("gs:// inputs need a storage client")

// ImageExtensions are the file extensions picked up by a directory scan.
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tif", ".tiff"}

// ObjectStore reads and lists objects by gs:// URI. *gcp.ObjectReader
// implements it.
type ObjectStore interface {
	ReadObject(ctx context.Context, uri string) ([]byte, error)
	ListObjects(ctx context.Context, prefixURI string, keep func(name string) bool) ([]string, error)
}

// Resolver reads inputs from the local filesystem or, for gs:// URIs, from an
// object store.
type Resolver struct {
	objects ObjectStore
}

// NewResolver creates a Resolver. objects may be nil when only local inputs
// are used.
func NewResolver(objects ObjectStore) *Resolver {
	return &Resolver{objects: objects}
}

// ReadFile implements imaging.Reader.
func (r *Resolver) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if !gcp.IsGCSURI(path) {
		return os.ReadFile(path)
	}
	if r.objects == nil {
		return nil, ErrNoObjectStore
	}
	return r.objects.ReadObject(ctx, path)
}

// ScanDirectory returns every image below dir, sorted by path. dir may be a
// gs:// prefix.
func (r *Resolver) ScanDirectory(ctx context.Context, dir string) ([]string, error) {
	var paths []string
	if gcp.IsGCSURI(dir) {
		if r.objects == nil {
			return nil, ErrNoObjectStore
		}
		prefix := dir
		if !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		uris, err := r.objects.ListObjects(ctx, prefix, IsImagePath)
		if err != nil {
			return nil, err
		}
		paths = uris
	} else {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && IsImagePath(path) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
		}
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoImages, dir)
	}
	sort.Strings(paths)
	return paths, nil
}

// IsImagePath reports whether path has one of ImageExtensions, ignoring case.
func IsImagePath(path string) bool {
	return hasExtension(path, ImageExtensions...)
}

// IsPDFPath reports whether path names a PDF document.
func IsPDFPath(path string) bool {
	return hasExtension(path, ".pdf")
}

func hasExtension(path string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
