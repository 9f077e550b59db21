// Package deck assembles the slide pipeline from configuration and runs it end
// to end: input expansion, the stages, publishing and run tracking.
package deck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/Lllllllleong/slidedeckflow/internal/config"
	"github.com/Lllllllleong/slidedeckflow/internal/gcp"
	"github.com/Lllllllleong/slidedeckflow/internal/llm"
	"github.com/Lllllllleong/slidedeckflow/internal/logging"
	"github.com/Lllllllleong/slidedeckflow/internal/models"
	"github.com/Lllllllleong/slidedeckflow/internal/pipeline"
	"github.com/Lllllllleong/slidedeckflow/internal/publish"
	"github.com/Lllllllleong/slidedeckflow/internal/services"
	"github.com/Lllllllleong/slidedeckflow/internal/sources"
	"github.com/Lllllllleong/slidedeckflow/internal/store"
)

// RunError is returned by Generate when the pipeline ends with its error set.
type RunError struct {
	Message string
}

func (e *RunError) Error() string { return e.Message }

// Options controls which cloud clients New creates.
type Options struct {
	// Storage enables gs:// inputs and outputs.
	Storage bool
}

// Dependencies are the collaborators of a Generator. Nil fields disable the
// matching feature.
type Dependencies struct {
	Vision    llm.Client
	Text      llm.Client
	Objects   sources.ObjectStore
	Storage   *storage.Client
	Documents store.Documents
}

// Generator produces slide decks.
type Generator struct {
	cfg       *config.Config
	pipeline  *pipeline.Pipeline
	resolver  *sources.Resolver
	publisher *publish.Publisher
	recorder  *store.Recorder
	closers   []func() error
}

// New creates the cloud and model clients named by cfg and assembles a
// Generator from them.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Generator, error) {
	var deps Dependencies
	var closers []func() error
	fail := func(err error) (*Generator, error) {
		for _, c := range closers {
			_ = c()
		}
		return nil, err
	}

	switch cfg.Provider {
	case config.ProviderVertex:
		vc, err := gcp.NewVertexClient(ctx, cfg.GCP.ProjectID, cfg.GCP.Region)
		if err != nil {
			return fail(fmt.Errorf("failed to create vertex client: %w", err))
		}
		closers = append(closers, vc.Close)
		deps.Vision = vc.Model(cfg.VisionModel())
		deps.Text = vc.Model(cfg.TextModel())
	case config.ProviderOpenAI:
		vision, err := llm.NewHTTPClient(cfg.HTTPClientConfig(), cfg.VisionModel())
		if err != nil {
			return fail(err)
		}
		text, err := llm.NewHTTPClient(cfg.HTTPClientConfig(), cfg.TextModel())
		if err != nil {
			return fail(err)
		}
		deps.Vision, deps.Text = vision, text
	default:
		return fail(fmt.Errorf("invalid provider: %q", cfg.Provider))
	}

	if opts.Storage {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return fail(fmt.Errorf("failed to create Storage client: %w", err))
		}
		closers = append(closers, client.Close)
		deps.Storage = client
		deps.Objects = gcp.NewObjectReader(client)
	}

	if cfg.Tracking.Enabled {
		client, err := gcp.NewFirestoreClient(ctx, cfg.GCP.ProjectID, cfg.GCP.FirestoreDatabase)
		if err != nil {
			return fail(fmt.Errorf("failed to create firestore client: %w", err))
		}
		closers = append(closers, client.Close)
		deps.Documents = store.NewFirestoreDocuments(client, cfg.Tracking.Collection)
	}

	g, err := Assemble(cfg, deps)
	if err != nil {
		return fail(err)
	}
	g.closers = closers
	slog.Info("Deck generator initialized.", "provider", cfg.Provider, "visionModel", cfg.Models.Vision, "textModel", cfg.Models.Text)
	return g, nil
}

// Assemble builds a Generator from existing clients.
func Assemble(cfg *config.Config, deps Dependencies) (*Generator, error) {
	if deps.Vision == nil || deps.Text == nil {
		return nil, errors.New("vision and text clients must be set")
	}
	vision, text := deps.Vision, deps.Text
	if cfg.Pipeline.RefusalCheck {
		vision, text = llm.WithRefusalCheck(vision), llm.WithRefusalCheck(text)
	}

	resolver := sources.NewResolver(deps.Objects)
	stages := pipeline.Stages{
		DescribeImages:   services.NewImageDescriber(vision, resolver, services.DescriberConfig{Concurrency: cfg.Pipeline.ImageConcurrency}),
		ExtractStructure: services.NewStructureExtractor(vision),
		OutlineSlides:    services.NewOutlineGenerator(text),
		DetailSlides:     services.NewDetailGenerator(text),
		RenderHTML:       services.NewHTMLRenderer(text),
	}
	if cfg.Pipeline.ValidateSlides {
		stages.ValidateSlides = services.NewSlideValidator()
	}
	p, err := pipeline.New(stages, pipeline.LogObserver{})
	if err != nil {
		return nil, err
	}

	g := &Generator{
		cfg:       cfg,
		pipeline:  p,
		resolver:  resolver,
		publisher: publish.New(deps.Storage),
	}
	if deps.Documents != nil {
		g.recorder = store.NewRecorder(deps.Documents)
	}
	return g, nil
}

// Close releases the clients created by New.
func (g *Generator) Close() error {
	var errs []error
	for _, c := range g.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// ScanDirectory lists the images below a local directory or gs:// prefix.
func (g *Generator) ScanDirectory(ctx context.Context, dir string) ([]string, error) {
	return g.resolver.ScanDirectory(ctx, dir)
}

// Request describes one deck.
type Request struct {
	// Inputs are image paths, PDFs or gs:// URIs, in slide order.
	Inputs      []string
	Instruction string
	// Output overrides the configured output path.
	Output      string
	ExecutionID string
}

// Result is the outcome of Generate.
type Result struct {
	RunID     string
	OutputURL string
	State     models.State
}

// Generate runs the pipeline for req and publishes the deck. A pipeline
// failure is returned as *RunError; nothing is published in that case.
func (g *Generator) Generate(ctx context.Context, req Request, observers ...pipeline.Observer) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	logCtx := logging.FromContext(ctx).With("runId", res.RunID)
	if req.ExecutionID != "" {
		logCtx = logCtx.With("executionId", req.ExecutionID)
	}
	ctx = logging.WithLogger(ctx, logCtx)

	refs, err := g.resolver.Expand(ctx, req.Inputs)
	if err != nil {
		logCtx.Error("Failed to expand inputs", "error", err)
		if deterministicInputError(err) {
			return res, fmt.Errorf("%w: failed to expand inputs: %w", ErrInvalidRequest, err)
		}
		return res, fmt.Errorf("failed to expand inputs: %w", err)
	}

	var tracker *store.Tracker
	if g.recorder != nil {
		tracker, err = g.recorder.Begin(ctx, res.RunID, req.Instruction, len(refs), req.ExecutionID)
		if err != nil {
			logCtx.Error("Failed to create run document", "error", err)
			return res, err
		}
		observers = append(observers, tracker)
	}

	res.State = g.pipeline.Run(ctx, models.NewState(refs, req.Instruction), observers...)
	if msg, failed := res.State.Err(); failed {
		return res, &RunError{Message: msg}
	}

	output := req.Output
	if output == "" {
		output = g.cfg.Output.Path
	}
	html, _ := res.State.HTMLOutput()
	url, err := g.publisher.Publish(ctx, output, html)
	if err != nil {
		logCtx.Error("Failed to publish deck", "output", output, "error", err)
		if tracker != nil {
			tracker.Fail(ctx, err.Error())
		}
		return res, err
	}
	res.OutputURL = url
	if tracker != nil {
		tracker.Complete(ctx, url)
	}
	logCtx.Info("Deck published.", "outputUrl", url)
	return res, nil
}

// Compile-time checks.
// deterministicInputError reports whether err names inputs that fail the same
// way on every attempt: missing files or objects, empty inputs, broken PDFs.
func deterministicInputError(err error) bool {
	return errors.Is(err, sources.ErrNoImages) ||
		errors.Is(err, sources.ErrInvalidPDF) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, storage.ErrObjectNotExist)
}

var (
	_ sources.ObjectStore = (*gcp.ObjectReader)(nil)
	_ store.Documents     = (*store.FirestoreDocuments)(nil)
	_ pipeline.Observer   = (*store.Tracker)(nil)
)
