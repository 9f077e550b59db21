// Package publish stores a finished slide deck.
package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"

	"github.com/Lllllllleong/slidedeckflow/internal/gcp"
)

const htmlContentType = "text/html; charset=utf-8"

// ErrNoStorage is returned for gs:// destinations when no storage client is set.
var ErrNoStorage = errors.New("gs:// destinations need a storage client")

// Publisher writes HTML to a local file or a GCS object.
type Publisher struct {
	storage *storage.Client
}

// New creates a Publisher. client may be nil when only local output is used.
func New(client *storage.Client) *Publisher {
	return &Publisher{storage: client}
}

// Publish writes html to dest and returns the URL it can be opened at: a
// file:// URL for local paths, the gs:// URI otherwise. Local files are
// overwritten; GCS objects are never replaced and an existing object yields
// gcp.ErrObjectExists.
func (p *Publisher) Publish(ctx context.Context, dest, html string) (string, error) {
	if gcp.IsGCSURI(dest) {
		return p.publishGCS(ctx, dest, html)
	}
	return publishLocal(dest, html)
}

func publishLocal(dest, html string) (string, error) {
	abs, err := filepath.Abs(dest)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dest, err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(abs, []byte(html), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", abs, err)
	}
	return "file://" + filepath.ToSlash(abs), nil
}

func (p *Publisher) publishGCS(ctx context.Context, dest, html string) (string, error) {
	if p.storage == nil {
		return "", ErrNoStorage
	}
	bucket, object, err := gcp.ParseGCSURI(dest)
	if err != nil {
		return "", err
	}
	if object == "" {
		return "", fmt.Errorf("missing object name in %q", dest)
	}
	if err := gcp.SaveToGCSAtomically(ctx, p.storage.Bucket(bucket), object, htmlContentType, html); err != nil {
		return "", fmt.Errorf("failed to publish %s: %w", dest, err)
	}
	return dest, nil
}
