package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Lllllllleong/slidedeckflow/internal/llm"
	"github.com/Lllllllleong/slidedeckflow/internal/logging"
	"github.com/Lllllllleong/slidedeckflow/internal/models"
)

// StructureExtractor merges the image descriptions and the instruction into a
// titled outline.
type StructureExtractor struct {
	client llm.Client
}

// NewStructureExtractor creates the structure extraction stage.
func NewStructureExtractor(client llm.Client) *StructureExtractor {
	return &StructureExtractor{client: client}
}

// Process stores the model's structured outline as the content structure.
func (e *StructureExtractor) Process(ctx context.Context, st models.State) models.State {
	if st.Failed() {
		return st
	}
	logCtx := logging.FromContext(ctx).With("stage", "extract_structure")

	instruction, ok := st.Instruction()
	if !ok {
		return st.Fail("no instruction provided")
	}

	// Descriptions may be absent when the state was assembled without the
	// ingestion stage; the prompt is then built from the instruction alone.
	descriptions, _ := st.ImageDescriptions()
	prompt := fmt.Sprintf(structureUserPrompt, formatDescriptions(descriptions), instruction)

	out, err := complete(ctx, logCtx, e.client, StructureSystemPrompt, prompt, false)
	if err != nil {
		return st.Fail(failure("content structure extraction", err))
	}
	return st.WithContentStructure(out)
}

// formatDescriptions renders one paragraph per image, each headed by its index.
func formatDescriptions(descriptions []models.ImageDescription) string {
	blocks := make([]string, len(descriptions))
	for i, d := range descriptions {
		blocks[i] = fmt.Sprintf("Analysis of image %d:\n%s", d.Index, d.Text)
	}
	return strings.Join(blocks, "\n\n")
}

// OutlineGenerator expands the content structure into a per-slide outline.
type OutlineGenerator struct {
	client llm.Client
}

// NewOutlineGenerator creates the slide outline stage.
func NewOutlineGenerator(client llm.Client) *OutlineGenerator {
	return &OutlineGenerator{client: client}
}

func (g *OutlineGenerator) Process(ctx context.Context, st models.State) models.State {
	if st.Failed() {
		return st
	}
	logCtx := logging.FromContext(ctx).With("stage", "outline_slides")

	structure, ok := st.ContentStructure()
	if !ok {
		return st.Fail(failure("slide outline generation", errors.New("content structure is missing")))
	}

	out, err := complete(ctx, logCtx, g.client, OutlineSystemPrompt, fmt.Sprintf(outlineUserPrompt, structure), false)
	if err != nil {
		return st.Fail(failure("slide outline generation", err))
	}
	return st.WithSlideOutline(out)
}

// DetailGenerator expands the outline into full slide content, requested as
// JSON. The reply is stored as text and not parsed here.
type DetailGenerator struct {
	client llm.Client
}

// NewDetailGenerator creates the detailed slide stage.
func NewDetailGenerator(client llm.Client) *DetailGenerator {
	return &DetailGenerator{client: client}
}

func (g *DetailGenerator) Process(ctx context.Context, st models.State) models.State {
	if st.Failed() {
		return st
	}
	logCtx := logging.FromContext(ctx).With("stage", "detail_slides")

	outline, ok := st.SlideOutline()
	if !ok {
		return st.Fail(failure("detailed slide generation", errors.New("slide outline is missing")))
	}

	out, err := complete(ctx, logCtx, g.client, DetailSystemPrompt, fmt.Sprintf(detailUserPrompt, outline), true)
	if err != nil {
		return st.Fail(failure("detailed slide generation", err))
	}
	return st.WithSlidePresentation(out)
}

// complete runs one system+user exchange and logs its outcome.
func complete(ctx context.Context, logCtx *slog.Logger, client llm.Client, system, user string, jsonOut bool) (string, error) {
	logCtx.Info("Calling model.", "promptChars", len(user))
	out, err := client.Complete(ctx, llm.Request{
		Messages: []llm.Message{llm.System(system), llm.UserText(user)},
		JSON:     jsonOut,
	})
	if err != nil {
		logCtx.Error("Call to model failed", "error", err)
		return "", err
	}
	logCtx.Info("Model call complete.", "responseChars", len(out))
	return out, nil
}
