package imaging_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/Lllllllleong/slidedeckflow/internal/imaging"
	"github.com/Lllllllleong/slidedeckflow/internal/models"
)

func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	return img
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))
	return buf.Bytes()
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestEncodePathSendsRawBytes(t *testing.T) {
	t.Parallel()

	raw := pngBytes(t)
	path := writeFile(t, "a.png", raw)

	enc, err := imaging.Encode(context.Background(), imaging.FileReader{}, models.PathRef(path))
	require.NoError(t, err)
	assert.Equal(t, "image/png", enc.MIMEType)
	assert.Equal(t, base64.StdEncoding.EncodeToString(raw), enc.Data)
}

func TestEncodeDecodedImageAsPNG(t *testing.T) {
	t.Parallel()

	enc, err := imaging.Encode(context.Background(), imaging.FileReader{}, models.DecodedRef(testImage()))
	require.NoError(t, err)
	assert.Equal(t, "image/png", enc.MIMEType)

	data, err := base64.StdEncoding.DecodeString(enc.Data)
	require.NoError(t, err)
	decoded, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 2, 2), decoded.Bounds())
}

func TestEncodeConvertsBMPToPNG(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, testImage()))
	path := writeFile(t, "a.bmp", buf.Bytes())

	enc, err := imaging.Encode(context.Background(), imaging.FileReader{}, models.PathRef(path))
	require.NoError(t, err)
	assert.Equal(t, "image/png", enc.MIMEType)

	data, err := base64.StdEncoding.DecodeString(enc.Data)
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(data))
	assert.NoError(t, err)
}

func TestEncodeRejectsUnsupportedShapes(t *testing.T) {
	t.Parallel()

	_, err := imaging.Encode(context.Background(), imaging.FileReader{}, models.ImageRef{})
	assert.ErrorIs(t, err, imaging.ErrUnsupported)

	both := models.ImageRef{Path: "a.png", Image: testImage()}
	assert.ErrorIs(t, imaging.Validate(both), imaging.ErrUnsupported)
}

func TestEncodeReadFailure(t *testing.T) {
	t.Parallel()

	_, err := imaging.Encode(context.Background(), imaging.FileReader{}, models.PathRef(filepath.Join(t.TempDir(), "missing.png")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestEncodeGarbageData(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "notes.png", []byte("plain text, not an image"))
	_, err := imaging.Encode(context.Background(), imaging.FileReader{}, models.PathRef(path))
	assert.Error(t, err)
}
