package models

import "time"

// Run status values stored in Firestore. The in-progress values name the stage
// that is currently executing.
const (
	RunStatusProcessingImages = "PROCESSING_IMAGES"
	RunStatusExtracting       = "EXTRACTING_STRUCTURE"
	RunStatusOutlining        = "OUTLINING_SLIDES"
	RunStatusDetailing        = "DETAILING_SLIDES"
	RunStatusValidating       = "VALIDATING_SLIDES"
	RunStatusRendering        = "RENDERING_HTML"
	RunStatusCompleted        = "COMPLETED"
	RunStatusFailed           = "FAILED"
)

// Run represents one pipeline execution recorded in Firestore.
// It tracks the overall status and metadata of the deck being generated.
type Run struct {
	RunID        string    `firestore:"runId,omitempty"`
	Instruction  string    `firestore:"instruction,omitempty"`
	ImageCount   int       `firestore:"imageCount,omitempty"`
	Status       string    `firestore:"status,omitempty"`
	ErrorDetails string    `firestore:"errorDetails,omitempty"`
	OutputURI    string    `firestore:"outputUri,omitempty"`
	ExecutionID  string    `firestore:"executionId,omitempty"` // For traceability
	CreatedAt    time.Time `firestore:"createdAt,omitempty"`
	UpdatedAt    time.Time `firestore:"updatedAt,omitempty"`
}
