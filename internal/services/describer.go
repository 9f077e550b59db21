// Package services implements the stages of the slide pipeline. Every stage
// takes the pipeline state and returns it with one more field, or with the
// error set. Stages never return Go errors.
package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/slidedeckflow/internal/imaging"
	"github.com/Lllllllleong/slidedeckflow/internal/llm"
	"github.com/Lllllllleong/slidedeckflow/internal/logging"
	"github.com/Lllllllleong/slidedeckflow/internal/models"
)

// DefaultImageConcurrency bounds the number of in-flight image descriptions.
const DefaultImageConcurrency = 4

// DescriberConfig holds the tuning knobs of the image description stage.
type DescriberConfig struct {
	// Concurrency is the number of images described at once. Values below 1
	// mean DefaultImageConcurrency.
	Concurrency int
}

// ImageDescriber asks a vision model to describe each input image.
type ImageDescriber struct {
	client llm.Client
	reader imaging.Reader
	config DescriberConfig
}

// NewImageDescriber creates the image description stage. A nil reader reads
// from the local filesystem.
func NewImageDescriber(client llm.Client, reader imaging.Reader, config DescriberConfig) *ImageDescriber {
	if reader == nil {
		reader = imaging.FileReader{}
	}
	if config.Concurrency < 1 {
		config.Concurrency = DefaultImageConcurrency
	}
	return &ImageDescriber{client: client, reader: reader, config: config}
}

// Process describes every image in order. Any failure discards all
// descriptions and sets the error; the first failing call wins.
func (d *ImageDescriber) Process(ctx context.Context, st models.State) models.State {
	if st.Failed() {
		return st
	}
	logCtx := logging.FromContext(ctx).With("stage", "describe_images")

	images, ok := st.Images()
	if !ok || len(images) == 0 {
		return st.Fail("no images provided")
	}
	for i, ref := range images {
		if err := imaging.Validate(ref); err != nil {
			logCtx.Error("Unsupported image reference", "imageIndex", i+1)
			return st.Fail(fmt.Sprintf("unsupported image format (image %d)", i+1))
		}
	}

	logCtx.Info("Starting image descriptions.", "imageCount", len(images), "concurrency", d.config.Concurrency)
	start := time.Now()

	descriptions := make([]models.ImageDescription, len(images))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(d.config.Concurrency)

	for i, ref := range images {
		idx := i + 1
		eg.Go(func() error {
			text, err := d.describe(gctx, idx, ref)
			if err != nil {
				return fmt.Errorf("image %d: %w", idx, err)
			}
			descriptions[idx-1] = models.ImageDescription{Index: idx, Text: text}
			logCtx.Debug("Image described.", "imageIndex", idx, "chars", len(text))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		logCtx.Error("Image description failed", "error", err)
		return st.Fail(failure("image processing", err))
	}

	logCtx.Info("Image descriptions complete.", "imageCount", len(images), "elapsed", time.Since(start).String())
	return st.WithImageDescriptions(descriptions)
}

func (d *ImageDescriber) describe(ctx context.Context, idx int, ref models.ImageRef) (string, error) {
	enc, err := imaging.Encode(ctx, d.reader, ref)
	if err != nil {
		return "", err
	}
	return d.client.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			llm.User(
				llm.TextPart(fmt.Sprintf(imageDescriptionPrompt, idx)),
				llm.ImagePart(enc.MIMEType, enc.Data),
			),
		},
	})
}

// failure formats a stage failure for the state's error field.
func failure(stage string, err error) string {
	return fmt.Sprintf("%s failed: %v", stage, err)
}
