package gcp

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"cloud.google.com/go/vertexai/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/Lllllllleong/slidedeckflow/internal/llm"
)

func TestParseGCSURI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{uri: "gs://decks/run/slides.html", wantBucket: "decks", wantObject: "run/slides.html"},
		{uri: "gs://decks/inputs/", wantBucket: "decks", wantObject: "inputs/"},
		{uri: "gs://decks", wantBucket: "decks"},
		{uri: "gs:///object", wantErr: true},
		{uri: "/tmp/a.png", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseGCSURI(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBucket, bucket)
			assert.Equal(t, tt.wantObject, object)
		})
	}
}

func TestIsPreconditionFailed(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("close: %w", &googleapi.Error{Code: http.StatusPreconditionFailed})
	assert.True(t, isPreconditionFailed(wrapped))
	assert.False(t, isPreconditionFailed(&googleapi.Error{Code: http.StatusForbidden}))
	assert.False(t, isPreconditionFailed(errors.New("plain")))
}

func TestToGenaiParts(t *testing.T) {
	t.Parallel()

	encoded := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	parts, err := toGenaiParts([]llm.Part{llm.TextPart("describe"), llm.ImagePart("image/png", encoded)})
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Equal(t, genai.Text("describe"), parts[0])
	assert.Equal(t, genai.Blob{MIMEType: "image/png", Data: []byte("png-bytes")}, parts[1])

	_, err = toGenaiParts([]llm.Part{llm.ImagePart("image/png", "%%%")})
	assert.Error(t, err)
}

func TestExtractText(t *testing.T) {
	t.Parallel()

	assert.Empty(t, extractText(nil))
	assert.Empty(t, extractText(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("<html>"), genai.Blob{}, genai.Text("</html>")}},
		}},
	}
	assert.Equal(t, "<html></html>", extractText(resp))
}
