package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/slidedeckflow/internal/config"
	"github.com/Lllllllleong/slidedeckflow/internal/deck"
	"github.com/Lllllllleong/slidedeckflow/internal/logging"
	"github.com/Lllllllleong/slidedeckflow/internal/models"
)

var (
	generator *deck.Generator
	once      sync.Once
	initErr   error
)

func init() {
	functions.CloudEvent("GenerateDeckFromManifest", generateDeckFromManifest)
}

// main is required by the Go Functions Framework.
func main() {}

func setup(ctx context.Context) (*deck.Generator, error) {
	cfg, err := config.Load(os.Getenv("DECK_CONFIG_FILE"))
	if err != nil {
		return nil, err
	}
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logging.Init(level, "json", os.Stdout)
	return deck.New(ctx, cfg, deck.Options{Storage: true})
}

// generateDeckFromManifest runs when an object is finalized in the jobs
// bucket. Objects that are not deck manifests are ignored.
func generateDeckFromManifest(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		generator, initErr = setup(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent models.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}
	logCtx := slog.With("gcsBucket", gcsEvent.Bucket, "gcsObject", gcsEvent.Name)
	if !deck.IsManifest(gcsEvent.Name) {
		logCtx.Info("Object is not a deck manifest. Skipping.")
		return nil
	}

	manifestURI := fmt.Sprintf("gs://%s/%s", gcsEvent.Bucket, gcsEvent.Name)
	data, err := generator.ReadObject(ctx, manifestURI)
	if err != nil {
		logCtx.Error("Failed to read manifest", "error", err)
		return err
	}
	req, err := deck.ParseManifest(gcsEvent.Bucket, gcsEvent.Name, data)
	if err != nil {
		// A malformed manifest never succeeds on retry.
		logCtx.Error("Invalid manifest", "error", err)
		return nil
	}
	if req.ExecutionID == "" {
		req.ExecutionID = e.ID()
	}

	res, err := generator.Process(logging.WithLogger(ctx, logCtx), req)
	var runErr *deck.RunError
	switch {
	case errors.As(err, &runErr), errors.Is(err, deck.ErrInvalidRequest):
		// Recorded on the run document; retrying would fail the same way.
		logCtx.Warn("Deck generation failed.", "runId", res.RunID, "error", err)
		return nil
	case err != nil:
		return err
	}
	logCtx.Info("Deck generated from manifest.", "runId", res.RunID, "outputUri", res.OutputURI)
	return nil
}
