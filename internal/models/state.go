package models

import (
	"image"
)

// ImageRef points at one input image. Exactly one of Path or Image must be set;
// anything else is an unsupported representation.
type ImageRef struct {
	// Path is a local filesystem path or a gs:// object URI.
	Path string
	// Image is an already decoded image. It is re-encoded as PNG before upload.
	Image image.Image
}

// PathRef returns a reference to an image stored at path.
func PathRef(path string) ImageRef {
	return ImageRef{Path: path}
}

// DecodedRef returns a reference to an in-memory image.
func DecodedRef(img image.Image) ImageRef {
	return ImageRef{Image: img}
}

// PathRefs wraps every path in a PathRef, preserving order.
func PathRefs(paths []string) []ImageRef {
	refs := make([]ImageRef, len(paths))
	for i, p := range paths {
		refs[i] = PathRef(p)
	}
	return refs
}

// ImageDescription is the model's description of one input image.
// Index is 1-based and matches the image's position in the input.
type ImageDescription struct {
	Index int    `json:"image_idx"`
	Text  string `json:"analysis"`
}

// Status is the lifecycle position of a State.
type Status int

const (
	StatusInProgress Status = iota
	StatusFailed
	StatusSucceeded
)

func (s Status) String() string {
	switch s {
	case StatusFailed:
		return "failed"
	case StatusSucceeded:
		return "succeeded"
	default:
		return "in_progress"
	}
}

// field tracks which parts of a State have been written.
type field uint16

const (
	fieldImages field = 1 << iota
	fieldInstruction
	fieldDescriptions
	fieldStructure
	fieldOutline
	fieldPresentation
	fieldHTML
)

// State is the record threaded through the slide pipeline. It is a value:
// every With method returns an updated copy and leaves the receiver alone.
//
// A field is written at most once. Later writes to an already present field are
// ignored, and once the state has failed nothing but the error is retained.
type State struct {
	images       []ImageRef
	instruction  string
	descriptions []ImageDescription
	structure    string
	outline      string
	presentation string
	html         string

	set field
	err string
}

// NewState creates the entry state of a pipeline run.
func NewState(images []ImageRef, instruction string) State {
	return State{}.WithImages(images).WithInstruction(instruction)
}

func (s State) has(f field) bool { return s.set&f != 0 }

// write applies fn to a copy of s and marks f as present, unless the state has
// already failed or f was written before.
func (s State) write(f field, fn func(*State)) State {
	if s.err != "" || s.has(f) {
		return s
	}
	fn(&s)
	s.set |= f
	return s
}

// WithImages records the input images. A copy of the slice is kept.
func (s State) WithImages(images []ImageRef) State {
	return s.write(fieldImages, func(n *State) {
		n.images = append([]ImageRef(nil), images...)
	})
}

// WithInstruction records the user instruction. An empty instruction still
// counts as present.
func (s State) WithInstruction(instruction string) State {
	return s.write(fieldInstruction, func(n *State) { n.instruction = instruction })
}

// WithImageDescriptions records the per-image descriptions.
func (s State) WithImageDescriptions(descriptions []ImageDescription) State {
	return s.write(fieldDescriptions, func(n *State) {
		n.descriptions = append([]ImageDescription(nil), descriptions...)
	})
}

// WithContentStructure records the structured outline.
func (s State) WithContentStructure(structure string) State {
	return s.write(fieldStructure, func(n *State) { n.structure = structure })
}

// WithSlideOutline records the per-slide outline.
func (s State) WithSlideOutline(outline string) State {
	return s.write(fieldOutline, func(n *State) { n.outline = outline })
}

// WithSlidePresentation records the detailed, JSON shaped slide content.
func (s State) WithSlidePresentation(presentation string) State {
	return s.write(fieldPresentation, func(n *State) { n.presentation = presentation })
}

// WithHTMLOutput records the rendered document. The state is terminal afterwards.
func (s State) WithHTMLOutput(html string) State {
	return s.write(fieldHTML, func(n *State) { n.html = html })
}

// Fail marks the state as failed. The first error wins; an empty message or a
// state that already succeeded is left unchanged.
func (s State) Fail(message string) State {
	if s.err != "" || message == "" || s.has(fieldHTML) {
		return s
	}
	s.err = message
	return s
}

// Images returns the input images and whether they were provided.
func (s State) Images() ([]ImageRef, bool) {
	return append([]ImageRef(nil), s.images...), s.has(fieldImages)
}

// Instruction returns the user instruction and whether it was provided.
func (s State) Instruction() (string, bool) {
	return s.instruction, s.has(fieldInstruction)
}

// ImageDescriptions returns the per-image descriptions, if present.
func (s State) ImageDescriptions() ([]ImageDescription, bool) {
	return append([]ImageDescription(nil), s.descriptions...), s.has(fieldDescriptions)
}

// ContentStructure returns the structured outline, if present.
func (s State) ContentStructure() (string, bool) {
	return s.structure, s.has(fieldStructure)
}

// SlideOutline returns the per-slide outline, if present.
func (s State) SlideOutline() (string, bool) {
	return s.outline, s.has(fieldOutline)
}

// SlidePresentation returns the detailed slide content, if present.
func (s State) SlidePresentation() (string, bool) {
	return s.presentation, s.has(fieldPresentation)
}

// HTMLOutput returns the final HTML document, if the run succeeded.
func (s State) HTMLOutput() (string, bool) {
	return s.html, s.has(fieldHTML)
}

// Err returns the error message, if the state has failed.
func (s State) Err() (string, bool) {
	return s.err, s.err != ""
}

// Failed reports whether an error has been recorded.
func (s State) Failed() bool { return s.err != "" }

// Status reports the lifecycle position of the state.
func (s State) Status() Status {
	switch {
	case s.err != "":
		return StatusFailed
	case s.has(fieldHTML):
		return StatusSucceeded
	default:
		return StatusInProgress
	}
}
