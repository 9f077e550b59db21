package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/Lllllllleong/slidedeckflow/internal/models"
	"github.com/Lllllllleong/slidedeckflow/internal/pipeline"
)

var stageLabels = map[pipeline.Step]string{
	pipeline.StepDescribeImages:   "Describing images",
	pipeline.StepExtractStructure: "Extracting structure",
	pipeline.StepOutlineSlides:    "Outlining slides",
	pipeline.StepDetailSlides:     "Detailing slides",
	pipeline.StepValidateSlides:   "Validating slides",
	pipeline.StepRenderHTML:       "Rendering HTML",
}

// progress shows one bar step per pipeline stage. A nil writer disables it.
type progress struct {
	pipeline.NopObserver
	bar *progressbar.ProgressBar
}

func newProgress(w io.Writer, stages int) *progress {
	if w == nil {
		return &progress{}
	}
	bar := progressbar.NewOptions(
		stages,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &progress{bar: bar}
}

func (p *progress) StageStarted(_ context.Context, step pipeline.Step, _ models.State) {
	if p.bar != nil {
		p.bar.Describe(stageLabels[step])
	}
}

func (p *progress) StageFinished(_ context.Context, _ pipeline.Step, _ models.State, _ time.Duration) {
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

func (p *progress) RunFinished(_ context.Context, st models.State) {
	if p.bar == nil {
		return
	}
	if st.Failed() {
		_ = p.bar.Clear()
		return
	}
	_ = p.bar.Finish()
}
