// Package store records deck generation runs in Firestore.
package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/Lllllllleong/slidedeckflow/internal/logging"
	"github.com/Lllllllleong/slidedeckflow/internal/models"
	"github.com/Lllllllleong/slidedeckflow/internal/pipeline"
)

// stepStatus is the run status recorded when a stage starts.
var stepStatus = map[pipeline.Step]string{
	pipeline.StepDescribeImages:   models.RunStatusProcessingImages,
	pipeline.StepExtractStructure: models.RunStatusExtracting,
	pipeline.StepOutlineSlides:    models.RunStatusOutlining,
	pipeline.StepDetailSlides:     models.RunStatusDetailing,
	pipeline.StepValidateSlides:   models.RunStatusValidating,
	pipeline.StepRenderHTML:       models.RunStatusRendering,
}

// Documents creates and updates run documents by ID.
type Documents interface {
	Create(ctx context.Context, id string, run models.Run) error
	Update(ctx context.Context, id string, updates []firestore.Update) error
}

// FirestoreDocuments stores runs in one Firestore collection.
type FirestoreDocuments struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreDocuments(client *firestore.Client, collection string) *FirestoreDocuments {
	return &FirestoreDocuments{client: client, collection: collection}
}

func (d *FirestoreDocuments) Create(ctx context.Context, id string, run models.Run) error {
	if _, err := d.client.Collection(d.collection).Doc(id).Create(ctx, run); err != nil {
		return fmt.Errorf("failed to create run document %s: %w", id, err)
	}
	return nil
}

func (d *FirestoreDocuments) Update(ctx context.Context, id string, updates []firestore.Update) error {
	if _, err := d.client.Collection(d.collection).Doc(id).Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to update run document %s: %w", id, err)
	}
	return nil
}

// Recorder starts tracked runs.
type Recorder struct {
	docs Documents
	now  func() time.Time
}

func NewRecorder(docs Documents) *Recorder {
	return &Recorder{docs: docs, now: time.Now}
}

// Begin creates the run document and returns a tracker for the run.
func (r *Recorder) Begin(ctx context.Context, runID, instruction string, imageCount int, executionID string) (*Tracker, error) {
	now := r.now()
	run := models.Run{
		RunID:       runID,
		Instruction: instruction,
		ImageCount:  imageCount,
		Status:      models.RunStatusProcessingImages,
		ExecutionID: executionID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.docs.Create(ctx, runID, run); err != nil {
		return nil, err
	}
	return &Tracker{recorder: r, runID: runID}, nil
}

// Tracker follows one run. As a pipeline.Observer it records the status of
// each stage as it starts and the error when the run fails. Complete and Fail
// record the outcome of steps after the pipeline, such as publishing.
//
// Firestore write errors are logged and never interrupt the run.
type Tracker struct {
	pipeline.NopObserver
	recorder *Recorder
	runID    string
}

func (t *Tracker) StageStarted(ctx context.Context, step pipeline.Step, _ models.State) {
	if status, ok := stepStatus[step]; ok {
		t.update(ctx, status, "", "")
	}
}

func (t *Tracker) RunFinished(ctx context.Context, st models.State) {
	if msg, failed := st.Err(); failed {
		t.update(ctx, models.RunStatusFailed, msg, "")
	}
}

// Complete marks the run as completed with its published output.
func (t *Tracker) Complete(ctx context.Context, outputURI string) {
	t.update(ctx, models.RunStatusCompleted, "", outputURI)
}

// Fail marks the run as failed.
func (t *Tracker) Fail(ctx context.Context, errDetails string) {
	t.update(ctx, models.RunStatusFailed, errDetails, "")
}

func (t *Tracker) update(ctx context.Context, status, errDetails, outputURI string) {
	updates := []firestore.Update{
		{Path: "status", Value: status},
		{Path: "updatedAt", Value: t.recorder.now()},
	}
	if errDetails != "" {
		updates = append(updates, firestore.Update{Path: "errorDetails", Value: errDetails})
	}
	if outputURI != "" {
		updates = append(updates, firestore.Update{Path: "outputUri", Value: outputURI})
	}
	if err := t.recorder.docs.Update(ctx, t.runID, updates); err != nil {
		logging.FromContext(ctx).Error("CRITICAL: Failed to update run status.", "runId", t.runID, "status", status, "updateError", err)
	}
}
