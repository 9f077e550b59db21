package services

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/Lllllllleong/slidedeckflow/internal/llm"
	"github.com/Lllllllleong/slidedeckflow/internal/logging"
	"github.com/Lllllllleong/slidedeckflow/internal/models"
)

// HTMLTemplate is the deck skeleton handed to the rendering model. It carries
// the {{TITLE}} and {{SLIDES}} placeholders plus previous/next navigation over
// every element with class "slide".
//
//go:embed template.html
var HTMLTemplate string

// HTMLRenderer turns the detailed slide content into the final document. The
// model's reply becomes the document verbatim.
type HTMLRenderer struct {
	client   llm.Client
	template string
}

// NewHTMLRenderer creates the rendering stage using HTMLTemplate.
func NewHTMLRenderer(client llm.Client) *HTMLRenderer {
	return &HTMLRenderer{client: client, template: HTMLTemplate}
}

func (r *HTMLRenderer) Process(ctx context.Context, st models.State) models.State {
	if st.Failed() {
		return st
	}
	logCtx := logging.FromContext(ctx).With("stage", "render_html")

	presentation, ok := st.SlidePresentation()
	if !ok {
		return st.Fail(failure("HTML generation", errors.New("slide presentation is missing")))
	}

	prompt := fmt.Sprintf(renderUserPrompt, presentation, r.template)
	out, err := complete(ctx, logCtx, r.client, RenderSystemPrompt, prompt, false)
	if err != nil {
		return st.Fail(failure("HTML generation", err))
	}
	return st.WithHTMLOutput(out)
}

// SlideValidator is an optional gate between detailing and rendering: it
// requires the detailed slide content to be syntactically valid JSON. No schema
// is imposed.
type SlideValidator struct{}

// NewSlideValidator creates the JSON validation gate.
func NewSlideValidator() *SlideValidator {
	return &SlideValidator{}
}

func (v *SlideValidator) Process(ctx context.Context, st models.State) models.State {
	if st.Failed() {
		return st
	}
	logCtx := logging.FromContext(ctx).With("stage", "validate_slides")

	presentation, ok := st.SlidePresentation()
	if !ok {
		return st.Fail(failure("slide validation", errors.New("slide presentation is missing")))
	}

	var doc any
	if err := json.Unmarshal([]byte(ExtractJSON(presentation)), &doc); err != nil {
		logCtx.Error("Slide presentation is not valid JSON", "error", err)
		return st.Fail(fmt.Sprintf("slide presentation is not valid JSON: %v", err))
	}
	logCtx.Info("Slide presentation is valid JSON.")
	return st
}

// ExtractJSON trims whitespace and a surrounding markdown code fence. The
// fence's info string ("json", "JSON", ...) is dropped whatever its case.
func ExtractJSON(s string) string {
	clean := strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(clean, "```"); ok {
		clean = strings.TrimLeftFunc(rest, unicode.IsLetter)
		clean = strings.TrimSuffix(strings.TrimSpace(clean), "```")
	}
	return strings.TrimSpace(clean)
}
