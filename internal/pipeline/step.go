package pipeline

// Step is a position of the state machine: one per stage plus two terminal steps.
type Step int

const (
	StepDescribeImages Step = iota
	StepExtractStructure
	StepOutlineSlides
	StepDetailSlides
	StepValidateSlides
	StepRenderHTML

	// stepCount is the number of stage steps; terminal steps follow it.
	stepCount
)

const (
	StepSucceeded = stepCount + iota
	StepFailed
)

var stepNames = map[Step]string{
	StepDescribeImages:   "describe_images",
	StepExtractStructure: "extract_structure",
	StepOutlineSlides:    "outline_slides",
	StepDetailSlides:     "detail_slides",
	StepValidateSlides:   "validate_slides",
	StepRenderHTML:       "render_html",
	StepSucceeded:        "succeeded",
	StepFailed:           "failed",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether s ends a run.
func (s Step) Terminal() bool {
	return s == StepSucceeded || s == StepFailed
}
