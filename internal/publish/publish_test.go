package publish_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/slidedeckflow/internal/publish"
)

func TestPublishLocal(t *testing.T) {
	t.Parallel()

	dest := filepath.Join(t.TempDir(), "out", "slides.html")
	p := publish.New(nil)

	url, err := p.Publish(context.Background(), dest, "<html>one</html>")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "file://"))
	assert.True(t, strings.HasSuffix(url, "/out/slides.html"))

	// A second run replaces the file.
	_, err = p.Publish(context.Background(), dest, "<html>two</html>")
	require.NoError(t, err)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "<html>two</html>", string(data))
}

func TestPublishGCSNeedsClient(t *testing.T) {
	t.Parallel()

	_, err := publish.New(nil).Publish(context.Background(), "gs://decks/run.html", "<html></html>")

	require.ErrorIs(t, err, publish.ErrNoStorage)
}
