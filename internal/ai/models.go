package ai

import "errors"

// ErrDecoding reports a video that could not be opened or yielded no frames.
var ErrDecoding = errors.New("video could not be decoded")

// DefaultLabels is the ordered label set of the otoscopy classifier.
var DefaultLabels = []string{"aom", "csom", "earwax", "normal"}

// ExtractOptions controls deterministic frame sampling.
type ExtractOptions struct {
	FrameCount  int
	SkipSeconds int
	TopCrop     int
	BottomCrop  int
}

func DefaultExtractOptions() ExtractOptions {
	return ExtractOptions{
		FrameCount:  30,
		SkipSeconds: 2,
		TopCrop:     50,
		BottomCrop:  50,
	}
}

// VideoInfo holds the stream properties sampling depends on. FrameRate is
// truncated to whole frames per second.
type VideoInfo struct {
	TotalFrames int
	FrameRate   int
}

// ExtractedFrame is one frame written to disk. Position is the extraction
// order, Index the frame number in the source video.
type ExtractedFrame struct {
	Position int
	Index    int
	Path     string
}

// Prediction is the classifier's verdict for one image.
type Prediction struct {
	Label         string    `json:"label"`
	Index         int       `json:"index"`
	Confidence    float64   `json:"confidence"`
	Probabilities []float64 `json:"probabilities"`
}
