package ai

import (
	"context"
	"fmt"
	"image"
)

type Classifier interface {
	Classify(ctx context.Context, img image.Image) (*Prediction, error)
}

// Argmax maps a probability vector onto labels. The first maximum wins.
func Argmax(probabilities []float64, labels []string) (*Prediction, error) {
	if len(probabilities) == 0 {
		return nil, fmt.Errorf("empty probability vector")
	}
	if len(probabilities) != len(labels) {
		return nil, fmt.Errorf("classifier returned %d probabilities for %d labels", len(probabilities), len(labels))
	}

	best := 0
	for i, p := range probabilities {
		if p > probabilities[best] {
			best = i
		}
	}

	return &Prediction{
		Label:         labels[best],
		Index:         best,
		Confidence:    probabilities[best],
		Probabilities: probabilities,
	}, nil
}
