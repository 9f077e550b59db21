// Package pipeline sequences the slide generation stages.
//
// The topology is fixed and linear: describe images, extract structure,
// outline slides, detail slides, an optional JSON validation gate, and render
// HTML. After every stage a gate inspects the state; once an error is set the
// machine moves straight to the failed terminal step and no later stage runs.
// Stages are never re-entered and nothing is retried at this level.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/Lllllllleong/slidedeckflow/internal/models"
)

var ErrStageMustBeSet = errors.New("stage must be set")

// Stage is one step of the pipeline. It returns the state with at most one new
// field, or with the error set, and must pass failed states through untouched.
type Stage interface {
	Process(ctx context.Context, st models.State) models.State
}

// StageFunc adapts a function to Stage.
type StageFunc func(ctx context.Context, st models.State) models.State

func (f StageFunc) Process(ctx context.Context, st models.State) models.State {
	return f(ctx, st)
}

// Stages lists the stage implementations. ValidateSlides is optional; all
// others are required.
type Stages struct {
	DescribeImages   Stage
	ExtractStructure Stage
	OutlineSlides    Stage
	DetailSlides     Stage
	ValidateSlides   Stage
	RenderHTML       Stage
}

// Pipeline is the state machine over Stages.
type Pipeline struct {
	stages    [stepCount]Stage
	observers []Observer
}

// New creates a pipeline. Observers given here are notified on every run.
func New(stages Stages, observers ...Observer) (*Pipeline, error) {
	p := &Pipeline{observers: observers}
	p.stages[StepDescribeImages] = stages.DescribeImages
	p.stages[StepExtractStructure] = stages.ExtractStructure
	p.stages[StepOutlineSlides] = stages.OutlineSlides
	p.stages[StepDetailSlides] = stages.DetailSlides
	p.stages[StepValidateSlides] = stages.ValidateSlides
	p.stages[StepRenderHTML] = stages.RenderHTML

	for step := Step(0); step < stepCount; step++ {
		if p.stages[step] == nil && step != StepValidateSlides {
			return nil, errors.Join(ErrStageMustBeSet, errors.New(step.String()))
		}
	}
	return p, nil
}

// Continue is the gate: it reports whether the state may advance.
func Continue(st models.State) bool {
	return !st.Failed()
}

// next is the transition function of the machine.
func (p *Pipeline) next(current Step, st models.State) Step {
	if !Continue(st) {
		return StepFailed
	}
	for step := current + 1; step < stepCount; step++ {
		if p.stages[step] != nil {
			return step
		}
	}
	return StepSucceeded
}

// Run drives st from the first stage to a terminal step and returns the final
// state. The result holds either the HTML output or the error, never both.
func (p *Pipeline) Run(ctx context.Context, st models.State, observers ...Observer) models.State {
	obs := append(append([]Observer(nil), p.observers...), observers...)
	for _, o := range obs {
		o.RunStarted(ctx, st)
	}

	step := StepDescribeImages
	for !step.Terminal() {
		for _, o := range obs {
			o.StageStarted(ctx, step, st)
		}
		start := time.Now()
		st = p.stages[step].Process(ctx, st)
		elapsed := time.Since(start)
		for _, o := range obs {
			o.StageFinished(ctx, step, st, elapsed)
		}
		step = p.next(step, st)
	}

	if _, ok := st.HTMLOutput(); step == StepSucceeded && !ok {
		st = st.Fail("pipeline finished without HTML output")
	}

	for _, o := range obs {
		o.RunFinished(ctx, st)
	}
	return st
}
