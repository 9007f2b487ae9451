package classification

import (
	"fmt"

	"github.com/kdimtricp/otoscan/internal/ai"
)

// Stage is a state of one pipeline run.
type Stage string

const (
	StageIdle        Stage = "idle"
	StageExtracting  Stage = "extracting"
	StageInferring   Stage = "inferring"
	StageRejected    Stage = "rejected"
	StageAggregating Stage = "aggregating"
	StageResponding  Stage = "responding"
)

const DefaultRejectThreshold = 22

// FrameSample is the classifier's verdict on one extracted frame.
type FrameSample struct {
	Position   int
	Index      int
	Prediction ai.Prediction
}

// Result is the outcome of a completed run. BestAccuracy and BestFrameLabel
// describe the single most confident frame and may disagree with Prediction,
// the label most frames voted for.
type Result struct {
	ID             string
	Prediction     string
	BestAccuracy   float64
	BestFrameLabel string
	Counts         map[string]int
	FrameCount     int
	Frames         []FrameSample
	Image          []byte
	ImageBase64    string
	ImageKey       string
}

// RejectionError reports a run where one label dominated the sampled frames.
// It is a data quality outcome rather than a fault.
type RejectionError struct {
	Label     string
	Count     int
	Threshold int
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("Label count exceeds %d. Video processing stopped.", e.Threshold)
}
