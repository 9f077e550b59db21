package sources

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"slices"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	_ "golang.org/x/image/tiff"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/slidedeckflow/internal/gcp"
	"github.com/Lllllllleong/slidedeckflow/internal/logging"
	"github.com/Lllllllleong/slidedeckflow/internal/models"
)

// pdfConcurrency bounds the number of PDFs extracted at once.
const pdfConcurrency = 4

// Expand turns inputs into image references in input order. Each PDF is
// replaced by its embedded images in page order, and each gs:// prefix ending
// in "/" by the images below it. Every other input becomes a path reference.
func (r *Resolver) Expand(ctx context.Context, inputs []string) ([]models.ImageRef, error) {
	logCtx := logging.FromContext(ctx)

	groups := make([][]models.ImageRef, len(inputs))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(pdfConcurrency)

	for i, input := range inputs {
		switch {
		case gcp.IsGCSURI(input) && strings.HasSuffix(input, "/"):
			eg.Go(func() error {
				paths, err := r.ScanDirectory(gctx, input)
				if err != nil {
					return err
				}
				groups[i] = models.PathRefs(paths)
				return nil
			})
		case IsPDFPath(input):
			eg.Go(func() error {
				refs, err := r.extractPDFImages(gctx, logCtx, input)
				if err != nil {
					return fmt.Errorf("pdf %s: %w", input, err)
				}
				groups[i] = refs
				return nil
			})
		default:
			groups[i] = []models.ImageRef{models.PathRef(input)}
		}
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var refs []models.ImageRef
	for _, g := range groups {
		refs = append(refs, g...)
	}
	return refs, nil
}

func (r *Resolver) extractPDFImages(ctx context.Context, logCtx *slog.Logger, path string) ([]models.ImageRef, error) {
	data, err := r.ReadFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read: %w", err)
	}

	// ExtractImages walks each page's images through a map, so the callback
	// order is random within a page.
	type extracted struct {
		page, obj int
		img       image.Image
	}
	var found []extracted
	digest := func(img model.Image, _ bool, _ int) error {
		decoded, format, err := image.Decode(img)
		if err != nil {
			// JPEG 2000 and other filters have no Go decoder.
			logCtx.Warn("Skipping undecodable PDF image.", "pdf", path, "page", img.PageNr, "type", img.FileType, "error", err)
			return nil
		}
		logCtx.Debug("Extracted PDF image.", "pdf", path, "page", img.PageNr, "objNr", img.ObjNr, "format", format)
		found = append(found, extracted{page: img.PageNr, obj: img.ObjNr, img: decoded})
		return nil
	}

	if err := api.ExtractImages(bytes.NewReader(data), nil, digest, relaxedConfig()); err != nil {
		return nil, fmt.Errorf("%w: failed to extract images: %w", ErrInvalidPDF, err)
	}
	if len(found) == 0 {
		return nil, ErrNoImages
	}
	slices.SortFunc(found, func(a, b extracted) int {
		if a.page != b.page {
			return a.page - b.page
		}
		return a.obj - b.obj
	})

	refs := make([]models.ImageRef, len(found))
	for i, e := range found {
		refs[i] = models.DecodedRef(e.img)
	}
	logCtx.Info("PDF expanded into images.", "pdf", path, "imageCount", len(refs))
	return refs, nil
}

func relaxedConfig() *model.Configuration {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return cfg
}
