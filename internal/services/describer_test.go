package services_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/slidedeckflow/internal/llm"
	"github.com/Lllllllleong/slidedeckflow/internal/llm/llmtest"
	"github.com/Lllllllleong/slidedeckflow/internal/models"
	"github.com/Lllllllleong/slidedeckflow/internal/services"
)

var imageIndexPattern = regexp.MustCompile(`image (\d+)`)

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{G: 200, A: 255})
	return img
}

// writePNGs creates n PNG files and returns their paths in order.
func writePNGs(t *testing.T, n int) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, n)
	for i := range paths {
		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, testImage()))
		paths[i] = filepath.Join(dir, fmt.Sprintf("%c.png", 'a'+i))
		require.NoError(t, os.WriteFile(paths[i], buf.Bytes(), 0o600))
	}
	return paths
}

// promptIndex returns the image index named in a description request.
func promptIndex(req llm.Request) int {
	m := imageIndexPattern.FindStringSubmatch(req.Messages[0].Text())
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func TestImageDescriberPreservesOrder(t *testing.T) {
	t.Parallel()

	const count = 5
	// Later images answer first so completion order is the reverse of input order.
	mock := llmtest.New(func(ctx context.Context, req llm.Request) (string, error) {
		idx := promptIndex(req)
		time.Sleep(time.Duration(count-idx) * 5 * time.Millisecond)
		return fmt.Sprintf("description %d", idx), nil
	})
	stage := services.NewImageDescriber(mock, nil, services.DescriberConfig{Concurrency: count})

	st := stage.Process(context.Background(), models.NewState(models.PathRefs(writePNGs(t, count)), "x"))

	require.False(t, st.Failed())
	descriptions, ok := st.ImageDescriptions()
	require.True(t, ok)
	require.Len(t, descriptions, count)
	for k, d := range descriptions {
		assert.Equal(t, k+1, d.Index)
		assert.Equal(t, fmt.Sprintf("description %d", k+1), d.Text)
	}
	assert.Equal(t, count, mock.CallCount())
}

func TestImageDescriberAttachesImage(t *testing.T) {
	t.Parallel()

	mock := llmtest.Reply("a chart")
	stage := services.NewImageDescriber(mock, nil, services.DescriberConfig{Concurrency: 1})

	st := stage.Process(context.Background(), models.NewState([]models.ImageRef{models.DecodedRef(testImage())}, "x"))
	require.False(t, st.Failed())

	calls := mock.Calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0].Messages, 1)
	msg := calls[0].Messages[0]
	assert.Equal(t, llm.RoleUser, msg.Role)
	require.Len(t, msg.Parts, 2)
	assert.Contains(t, msg.Parts[0].Text, "image 1")
	require.NotNil(t, msg.Parts[1].Image)
	assert.Equal(t, "image/png", msg.Parts[1].Image.MIMEType)
	assert.NotEmpty(t, msg.Parts[1].Image.Data)
}

func TestImageDescriberUnsupportedEntry(t *testing.T) {
	t.Parallel()

	paths := writePNGs(t, 3)
	images := []models.ImageRef{models.PathRef(paths[0]), {}, models.PathRef(paths[2])}
	mock := llmtest.Reply("unused")
	stage := services.NewImageDescriber(mock, nil, services.DescriberConfig{})

	st := stage.Process(context.Background(), models.NewState(images, "x"))

	msg, failed := st.Err()
	require.True(t, failed)
	assert.Contains(t, msg, "image 2")
	_, ok := st.ImageDescriptions()
	assert.False(t, ok)
	assert.Zero(t, mock.CallCount())
}

func TestImageDescriberMissingImages(t *testing.T) {
	t.Parallel()

	stage := services.NewImageDescriber(llmtest.Reply("unused"), nil, services.DescriberConfig{})

	for name, st := range map[string]models.State{
		"absent": models.State{}.WithInstruction("x"),
		"empty":  models.NewState([]models.ImageRef{}, "x"),
	} {
		t.Run(name, func(t *testing.T) {
			msg, failed := stage.Process(context.Background(), st).Err()
			require.True(t, failed)
			assert.Equal(t, "no images provided", msg)
		})
	}
}

func TestImageDescriberClientFailureDiscardsPartialResults(t *testing.T) {
	t.Parallel()

	mock := llmtest.New(func(ctx context.Context, req llm.Request) (string, error) {
		if promptIndex(req) == 2 {
			return "", errors.New("connection reset")
		}
		return "ok", nil
	})
	stage := services.NewImageDescriber(mock, nil, services.DescriberConfig{Concurrency: 1})

	st := stage.Process(context.Background(), models.NewState(models.PathRefs(writePNGs(t, 3)), "x"))

	msg, failed := st.Err()
	require.True(t, failed)
	assert.Contains(t, msg, "image processing failed")
	assert.Contains(t, msg, "connection reset")
	_, ok := st.ImageDescriptions()
	assert.False(t, ok)
}

func TestImageDescriberReadFailure(t *testing.T) {
	t.Parallel()

	mock := llmtest.Reply("unused")
	stage := services.NewImageDescriber(mock, nil, services.DescriberConfig{})

	st := stage.Process(context.Background(), models.NewState(models.PathRefs([]string{filepath.Join(t.TempDir(), "gone.png")}), "x"))

	msg, failed := st.Err()
	require.True(t, failed)
	assert.Contains(t, msg, "image processing failed")
	assert.Zero(t, mock.CallCount())
}

func TestImageDescriberPassesFailedStateThrough(t *testing.T) {
	t.Parallel()

	mock := llmtest.Reply("unused")
	stage := services.NewImageDescriber(mock, nil, services.DescriberConfig{})
	in := models.NewState(models.PathRefs([]string{"a.png"}), "x").Fail("earlier")

	out := stage.Process(context.Background(), in)

	msg, _ := out.Err()
	assert.Equal(t, "earlier", msg)
	assert.Zero(t, mock.CallCount())
}
