package classification

import (
	"fmt"
	"image"

	"github.com/kdimtricp/otoscan/internal/ai"
)

// Tally accumulates per-frame predictions. Counters keep the label set order,
// which decides ties.
type Tally struct {
	labels []string
	index  map[string]int
	counts []int
	frames int

	best           image.Image
	bestLabel      string
	bestConfidence float64
}

func NewTally(labels []string) *Tally {
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}
	return &Tally{
		labels: append([]string(nil), labels...),
		index:  index,
		counts: make([]int, len(labels)),
	}
}

// Add counts one frame. The frame replaces the retained best frame only when
// its confidence is strictly higher, so the earliest of equally confident
// frames is kept.
func (t *Tally) Add(img image.Image, p *ai.Prediction) error {
	i, ok := t.index[p.Label]
	if !ok {
		return fmt.Errorf("prediction label %q is not in the label set", p.Label)
	}
	t.counts[i]++
	t.frames++

	if t.best == nil || p.Confidence > t.bestConfidence {
		t.best = img
		t.bestLabel = p.Label
		t.bestConfidence = p.Confidence
	}
	return nil
}

func (t *Tally) Frames() int {
	return t.frames
}

func (t *Tally) Counts() map[string]int {
	counts := make(map[string]int, len(t.labels))
	for i, l := range t.labels {
		counts[l] = t.counts[i]
	}
	return counts
}

// Exceeds returns the first label whose count is above threshold.
func (t *Tally) Exceeds(threshold int) (string, int, bool) {
	for i, c := range t.counts {
		if c > threshold {
			return t.labels[i], c, true
		}
	}
	return "", 0, false
}

// Winner returns the label with the most votes; the earliest label in the
// label set wins ties.
func (t *Tally) Winner() string {
	if len(t.labels) == 0 {
		return ""
	}
	best := 0
	for i, c := range t.counts {
		if c > t.counts[best] {
			best = i
		}
	}
	return t.labels[best]
}

// Best returns the most confident frame seen, its label and confidence.
func (t *Tally) Best() (image.Image, string, float64) {
	return t.best, t.bestLabel, t.bestConfidence
}
