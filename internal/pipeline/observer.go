package pipeline

import (
	"context"
	"time"

	"github.com/Lllllllleong/slidedeckflow/internal/logging"
	"github.com/Lllllllleong/slidedeckflow/internal/models"
)

// Observer is notified as a run progresses. Observers must not block for long;
// they run on the pipeline goroutine.
type Observer interface {
	RunStarted(ctx context.Context, st models.State)
	StageStarted(ctx context.Context, step Step, st models.State)
	StageFinished(ctx context.Context, step Step, st models.State, elapsed time.Duration)
	RunFinished(ctx context.Context, st models.State)
}

// NopObserver implements Observer with no-ops, for embedding.
type NopObserver struct{}

func (NopObserver) RunStarted(context.Context, models.State) {}
func (NopObserver) StageStarted(context.Context, Step, models.State) {}
func (NopObserver) StageFinished(context.Context, Step, models.State, time.Duration) {}
func (NopObserver) RunFinished(context.Context, models.State) {}

// LogObserver logs stage transitions through the context's logger.
type LogObserver struct{}

func (LogObserver) RunStarted(ctx context.Context, st models.State) {
	images, _ := st.Images()
	logging.FromContext(ctx).Info("Starting slide generation.", "imageCount", len(images))
}

func (LogObserver) StageStarted(ctx context.Context, step Step, _ models.State) {
	logging.FromContext(ctx).Debug("Stage started.", "stage", step.String())
}

func (LogObserver) StageFinished(ctx context.Context, step Step, st models.State, elapsed time.Duration) {
	logCtx := logging.FromContext(ctx).With("stage", step.String(), "elapsed", elapsed.String())
	if msg, failed := st.Err(); failed {
		logCtx.Warn("Stage halted the pipeline.", "error", msg)
		return
	}
	logCtx.Info("Stage complete.")
}

func (LogObserver) RunFinished(ctx context.Context, st models.State) {
	logCtx := logging.FromContext(ctx)
	if msg, failed := st.Err(); failed {
		logCtx.Error("Slide generation failed", "error", msg)
		return
	}
	html, _ := st.HTMLOutput()
	logCtx.Info("Slide generation complete.", "htmlChars", len(html))
}
