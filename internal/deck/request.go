package deck

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Lllllllleong/slidedeckflow/internal/gcp"
	"github.com/Lllllllleong/slidedeckflow/internal/models"
)

// ErrInvalidRequest marks requests rejected before any stage runs.
var ErrInvalidRequest = errors.New("invalid request")

// manifestSuffixes identify job manifests among uploaded objects.
var manifestSuffixes = []string{".deck.yaml", ".deck.yml", ".deck.json"}

// Process runs a deck request from one of the cloud entry points. The output
// must be a gs:// object.
func (g *Generator) Process(ctx context.Context, req models.DeckRequest) (models.DeckResponse, error) {
	if req.OutputURI == "" {
		return models.DeckResponse{Status: models.RunStatusFailed, Error: "outputUri is required"},
			fmt.Errorf("%w: outputUri is required", ErrInvalidRequest)
	}
	if !gcp.IsGCSURI(req.OutputURI) {
		return models.DeckResponse{Status: models.RunStatusFailed, Error: "outputUri must be a gs:// URI"},
			fmt.Errorf("%w: outputUri must be a gs:// URI, got %q", ErrInvalidRequest, req.OutputURI)
	}

	res, err := g.Generate(ctx, Request{
		Inputs:      req.Images,
		Instruction: req.Instruction,
		Output:      req.OutputURI,
		ExecutionID: req.ExecutionID,
	})
	resp := models.DeckResponse{RunID: res.RunID}
	if err != nil {
		resp.Status = models.RunStatusFailed
		resp.Error = err.Error()
		return resp, err
	}
	resp.Status = models.RunStatusCompleted
	resp.OutputURI = res.OutputURL
	return resp, nil
}

// ReadObject returns the contents of a local file or gs:// object.
func (g *Generator) ReadObject(ctx context.Context, uri string) ([]byte, error) {
	return g.resolver.ReadFile(ctx, uri)
}

// IsManifest reports whether an object name is a deck job manifest.
func IsManifest(name string) bool {
	return manifestSuffix(name) != ""
}

func manifestSuffix(name string) string {
	lower := strings.ToLower(name)
	for _, s := range manifestSuffixes {
		if strings.HasSuffix(lower, s) {
			return s
		}
	}
	return ""
}

// ParseManifest decodes the manifest stored at gs://bucket/name. YAML and JSON
// manifests share one schema. Without an outputUri the deck is written next to
// the manifest, named after it.
func ParseManifest(bucket, name string, data []byte) (models.DeckRequest, error) {
	var req models.DeckRequest
	if err := yaml.Unmarshal(data, &req); err != nil {
		return models.DeckRequest{}, fmt.Errorf("%w: failed to parse manifest %s: %v", ErrInvalidRequest, name, err)
	}
	if req.OutputURI == "" {
		base := name[:len(name)-len(manifestSuffix(name))]
		req.OutputURI = fmt.Sprintf("gs://%s/%s.html", bucket, path.Clean(base))
	}
	return req, nil
}
