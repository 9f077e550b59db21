package models

// These structs define the JSON payloads accepted by the deck-generator HTTP
// function and the job manifests picked up by the deck-trigger function.

// DeckRequest is the input for the deck-generator function. Images are gs://
// URIs of image objects or PDFs; a single gs:// prefix ending in "/" is
// expanded to every image below it.
type DeckRequest struct {
	Images      []string `json:"images" yaml:"images"`
	Instruction string   `json:"instruction" yaml:"instruction"`
	OutputURI   string   `json:"outputUri" yaml:"outputUri"`
	ExecutionID string   `json:"executionId,omitempty" yaml:"executionId,omitempty"`
}

// DeckResponse is the output of the deck-generator function.
type DeckResponse struct {
	Status    string `json:"status"`
	RunID     string `json:"runId"`
	OutputURI string `json:"outputUri,omitempty"`
	Error     string `json:"error,omitempty"`
}

// GCSEvent is the data of a storage object finalize CloudEvent.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}
