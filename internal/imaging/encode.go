// Package imaging turns image references into attachments a vision model
// accepts: raw bytes for formats models read natively, PNG for everything else.
package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"os"

	// Decoders for formats that are converted to PNG before upload.
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Lllllllleong/slidedeckflow/internal/models"
)

// ErrUnsupported is returned for references that are neither a path nor a
// decoded image.
var ErrUnsupported = errors.New("unsupported image representation")

// nativeTypes are the MIME types vision models accept without conversion.
var nativeTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// Reader loads the raw bytes behind a path reference.
type Reader interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

// FileReader reads from the local filesystem.
type FileReader struct{}

func (FileReader) ReadFile(_ context.Context, path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Encoded is an image ready to attach to a model request.
type Encoded struct {
	MIMEType string
	// Data is the standard base64 encoding of the image bytes.
	Data string
}

// Validate reports ErrUnsupported when ref does not hold exactly one
// representation.
func Validate(ref models.ImageRef) error {
	if (ref.Path == "") == (ref.Image == nil) {
		return ErrUnsupported
	}
	return nil
}

// Encode produces the transport form of ref. Path references are read through
// r and sent as is when the model reads the format natively; decoded images and
// other formats are encoded as PNG.
func Encode(ctx context.Context, r Reader, ref models.ImageRef) (Encoded, error) {
	if err := Validate(ref); err != nil {
		return Encoded{}, err
	}
	if ref.Image != nil {
		return encodePNG(ref.Image)
	}

	data, err := r.ReadFile(ctx, ref.Path)
	if err != nil {
		return Encoded{}, fmt.Errorf("failed to read image %s: %w", ref.Path, err)
	}
	if len(data) == 0 {
		return Encoded{}, fmt.Errorf("image %s is empty", ref.Path)
	}

	mimeType := http.DetectContentType(data)
	if nativeTypes[mimeType] {
		return Encoded{MIMEType: mimeType, Data: base64.StdEncoding.EncodeToString(data)}, nil
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Encoded{}, fmt.Errorf("image %s has unrecognised format %s: %w", ref.Path, mimeType, err)
	}
	enc, err := encodePNG(img)
	if err != nil {
		return Encoded{}, fmt.Errorf("failed to convert %s image %s: %w", format, ref.Path, err)
	}
	return enc, nil
}

func encodePNG(img image.Image) (Encoded, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Encoded{}, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return Encoded{MIMEType: "image/png", Data: base64.StdEncoding.EncodeToString(buf.Bytes())}, nil
}
