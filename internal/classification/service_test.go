package classification

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdimtricp/otoscan/internal/ai"
	"github.com/kdimtricp/otoscan/internal/events"
	"github.com/kdimtricp/otoscan/internal/models"
	"github.com/kdimtricp/otoscan/internal/models/frame_prediction"
	"github.com/kdimtricp/otoscan/internal/storage"
)

var (
	grey = color.RGBA{R: 90, G: 90, B: 90, A: 255}
	red  = color.RGBA{R: 230, A: 255}
)

// fakeExtractor writes one solid JPEG per position, coloured by colorAt.
type fakeExtractor struct {
	count   int
	colorAt func(position int) color.RGBA
	err     error
}

func (f *fakeExtractor) ExtractFrames(ctx context.Context, videoPath, outputDir string, opts ai.ExtractOptions) ([]ai.ExtractedFrame, error) {
	if f.err != nil {
		return nil, f.err
	}
	frames := make([]ai.ExtractedFrame, 0, f.count)
	for i := 0; i < f.count; i++ {
		c := grey
		if f.colorAt != nil {
			c = f.colorAt(i)
		}
		img := image.NewRGBA(image.Rect(0, 0, 320, 240))
		draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
		data, err := ai.EncodeJPEG(img)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(outputDir, fmt.Sprintf("frame_%04d.jpg", i))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, err
		}
		frames = append(frames, ai.ExtractedFrame{Position: i, Index: 60 + i*6, Path: path})
	}
	return frames, nil
}

// scriptedClassifier answers calls in order from script.
type scriptedClassifier struct {
	mu     sync.Mutex
	script []ai.Prediction
	calls  int
	err    error
}

func (c *scriptedClassifier) Classify(ctx context.Context, img image.Image) (*ai.Prediction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	p := c.script[c.calls]
	c.calls++
	return &p, nil
}

func votes(label string, n int, confidence float64) []ai.Prediction {
	out := make([]ai.Prediction, n)
	for i := range out {
		out[i] = ai.Prediction{Label: label, Confidence: confidence}
	}
	return out
}

type memoryRecorder struct {
	runs   []*models.Classification
	frames []*frame_prediction.FramePredictionDB
	err    error
}

func (m *memoryRecorder) Insert(ctx context.Context, run *models.Classification) error {
	if m.err != nil {
		return m.err
	}
	m.runs = append(m.runs, run)
	return nil
}

func (m *memoryRecorder) CreateBatch(ctx context.Context, rows []*frame_prediction.FramePredictionDB) error {
	m.frames = append(m.frames, rows...)
	return nil
}

type capturePublisher struct {
	keys   []string
	events []events.ClassificationEvent
	err    error
}

func (p *capturePublisher) Publish(ctx context.Context, key string, e events.ClassificationEvent) error {
	p.keys = append(p.keys, key)
	p.events = append(p.events, e)
	return p.err
}

type fixture struct {
	svc       *Service
	workDir   string
	artifacts *storage.LocalStorage
	recorder  *memoryRecorder
	publisher *capturePublisher
}

func newFixture(t *testing.T, extractor Extractor, classifier ai.Classifier) *fixture {
	t.Helper()

	annotator, err := ai.NewAnnotator()
	require.NoError(t, err)
	artifacts, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	f := &fixture{
		workDir:   t.TempDir(),
		artifacts: artifacts,
		recorder:  &memoryRecorder{},
		publisher: &capturePublisher{},
	}
	f.svc = NewService(Dependencies{
		Extractor:  extractor,
		Classifier: classifier,
		Annotator:  annotator,
		Artifacts:  artifacts,
		Runs:       f.recorder,
		Frames:     f.recorder,
		Publisher:  f.publisher,
	}, Config{WorkDir: f.workDir, RejectThreshold: DefaultRejectThreshold}, nil)
	return f
}

func (f *fixture) assertWorkspaceEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(f.workDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "workspace must be removed after the run")
}

func TestClassifyRejectsDominantLabel(t *testing.T) {
	script := append(votes("aom", 23, 0.9), votes("normal", 7, 0.8)...)
	f := newFixture(t, &fakeExtractor{count: 30}, &scriptedClassifier{script: script})

	result, err := f.svc.Classify(context.Background(), strings.NewReader("video"), "exam.mp4")
	assert.Nil(t, result)

	var rejection *RejectionError
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, "aom", rejection.Label)
	assert.Equal(t, 23, rejection.Count)
	assert.Equal(t, "Label count exceeds 22. Video processing stopped.", rejection.Error())

	require.Len(t, f.recorder.runs, 1)
	assert.Equal(t, models.ClassificationRejected, f.recorder.runs[0].Status)
	assert.Empty(t, f.recorder.runs[0].Prediction)
	assert.Equal(t, []string{events.RoutingRejected}, f.publisher.keys)
	f.assertWorkspaceEmpty(t)
}

func TestClassifyRejectThresholdIsHonored(t *testing.T) {
	annotator, err := ai.NewAnnotator()
	require.NoError(t, err)

	newService := func(threshold int) *Service {
		return NewService(Dependencies{
			Extractor:  &fakeExtractor{count: 3},
			Classifier: &scriptedClassifier{script: votes("earwax", 3, 0.8)},
			Annotator:  annotator,
		}, Config{WorkDir: t.TempDir(), RejectThreshold: threshold}, nil)
	}

	t.Run("zero rejects any vote", func(t *testing.T) {
		svc := newService(0)
		assert.Equal(t, 0, svc.config.RejectThreshold)

		_, err := svc.Classify(context.Background(), strings.NewReader("video"), "exam.mp4")
		var rejection *RejectionError
		require.ErrorAs(t, err, &rejection)
		assert.Equal(t, "earwax", rejection.Label)
		assert.Equal(t, 3, rejection.Count)
		assert.Equal(t, 0, rejection.Threshold)
	})

	t.Run("negative falls back to default", func(t *testing.T) {
		svc := newService(-1)
		assert.Equal(t, DefaultRejectThreshold, svc.config.RejectThreshold)

		result, err := svc.Classify(context.Background(), strings.NewReader("video"), "exam.mp4")
		require.NoError(t, err)
		assert.Equal(t, "earwax", result.Prediction)
	})
}

func TestClassifyTieResolvedByLabelOrder(t *testing.T) {
	script := append(append(votes("normal", 10, 0.7), votes("aom", 10, 0.7)...), votes("csom", 10, 0.7)...)
	f := newFixture(t, &fakeExtractor{count: 30}, &scriptedClassifier{script: script})

	result, err := f.svc.Classify(context.Background(), strings.NewReader("video"), "exam.mp4")
	require.NoError(t, err)
	assert.Equal(t, "aom", result.Prediction)
	assert.Equal(t, map[string]int{"aom": 10, "csom": 10, "earwax": 0, "normal": 10}, result.Counts)
}

func TestClassifyBestFrameDivergesFromWinner(t *testing.T) {
	script := append(votes("normal", 20, 0.6), votes("earwax", 10, 0.55)...)
	script[25].Confidence = 0.99

	extractor := &fakeExtractor{count: 30, colorAt: func(position int) color.RGBA {
		if position == 25 {
			return red
		}
		return grey
	}}
	f := newFixture(t, extractor, &scriptedClassifier{script: script})

	result, err := f.svc.Classify(context.Background(), strings.NewReader("video"), "exam.mp4")
	require.NoError(t, err)

	assert.Equal(t, "normal", result.Prediction)
	assert.Equal(t, 0.99, result.BestAccuracy)
	assert.Equal(t, "earwax", result.BestFrameLabel)
	assert.Equal(t, 30, result.FrameCount)
	require.Len(t, result.Frames, 30)
	assert.Equal(t, 25, result.Frames[25].Position)
	assert.Equal(t, 60+25*6, result.Frames[25].Index)

	decoded, err := base64.StdEncoding.DecodeString(result.ImageBase64)
	require.NoError(t, err)
	assert.Equal(t, result.Image, decoded)

	img, err := jpeg.Decode(bytes.NewReader(decoded))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(320, 240), img.Bounds().Size())
	r, g, _, _ := img.At(310, 230).RGBA()
	assert.Greater(t, r>>8, uint32(180), "annotated image should come from the most confident frame")
	assert.Less(t, g>>8, uint32(60))

	require.NotEmpty(t, result.ImageKey)
	stored, err := f.artifacts.OpenFile(context.Background(), result.ImageKey)
	require.NoError(t, err)
	stored.Close()

	require.Len(t, f.recorder.runs, 1)
	run := f.recorder.runs[0]
	assert.Equal(t, result.ID, run.ID)
	assert.Equal(t, models.ClassificationCompleted, run.Status)
	assert.Equal(t, "normal", run.Prediction)
	assert.Equal(t, "earwax", run.BestFrameLabel)
	assert.Equal(t, result.ImageKey, run.ImageKey)
	assert.Len(t, f.recorder.frames, 30)
	assert.Equal(t, []string{events.RoutingCompleted}, f.publisher.keys)

	f.assertWorkspaceEmpty(t)
}

func TestClassifyShortRunUsesFramesAvailable(t *testing.T) {
	f := newFixture(t, &fakeExtractor{count: 4}, &scriptedClassifier{script: votes("csom", 4, 0.9)})

	result, err := f.svc.Classify(context.Background(), strings.NewReader("video"), "exam.mp4")
	require.NoError(t, err)
	assert.Equal(t, "csom", result.Prediction)
	assert.Equal(t, 4, result.FrameCount)
}

func TestClassifyDecodingError(t *testing.T) {
	extractor := &fakeExtractor{err: fmt.Errorf("%w: unreadable", ai.ErrDecoding)}
	classifier := &scriptedClassifier{}
	f := newFixture(t, extractor, classifier)

	_, err := f.svc.Classify(context.Background(), strings.NewReader("not a video"), "exam.mp4")
	assert.ErrorIs(t, err, ai.ErrDecoding)
	assert.Zero(t, classifier.calls)
	assert.Empty(t, f.recorder.runs)
	f.assertWorkspaceEmpty(t)
}

func TestClassifyClassifierFailure(t *testing.T) {
	boom := errors.New("model server unavailable")
	f := newFixture(t, &fakeExtractor{count: 3}, &scriptedClassifier{err: boom})

	_, err := f.svc.Classify(context.Background(), strings.NewReader("video"), "exam.mp4")
	assert.ErrorIs(t, err, boom)
	f.assertWorkspaceEmpty(t)
}

func TestClassifyRecordingFailuresDoNotFailRun(t *testing.T) {
	f := newFixture(t, &fakeExtractor{count: 3}, &scriptedClassifier{script: votes("normal", 3, 0.9)})
	f.recorder.err = errors.New("database locked")
	f.publisher.err = errors.New("broker down")

	result, err := f.svc.Classify(context.Background(), strings.NewReader("video"), "exam.mp4")
	require.NoError(t, err)
	assert.Equal(t, "normal", result.Prediction)
	assert.Len(t, f.publisher.keys, 1)
}

func TestClassifyRecordsFramesWithUnencodableProbabilities(t *testing.T) {
	script := votes("normal", 4, 0.7)
	script[2].Probabilities = []float64{math.NaN(), 0.1, 0.2, 0.7}
	f := newFixture(t, &fakeExtractor{count: 4}, &scriptedClassifier{script: script})

	result, err := f.svc.Classify(context.Background(), strings.NewReader("video"), "exam.mp4")
	require.NoError(t, err)
	assert.Equal(t, "normal", result.Prediction)

	require.Len(t, f.recorder.frames, 4)
	assert.Nil(t, []byte(f.recorder.frames[2].Probabilities))
	assert.JSONEq(t, "null", string(f.recorder.frames[0].Probabilities))
}

func TestClassifyConcurrentRunsAreIsolated(t *testing.T) {
	annotator, err := ai.NewAnnotator()
	require.NoError(t, err)
	workDir := t.TempDir()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc := NewService(Dependencies{
				Extractor:  &fakeExtractor{count: 5},
				Classifier: &scriptedClassifier{script: votes("earwax", 5, 0.8)},
				Annotator:  annotator,
			}, Config{WorkDir: workDir, RejectThreshold: DefaultRejectThreshold}, nil)

			result, err := svc.Classify(context.Background(), strings.NewReader("video"), "exam.mp4")
			if assert.NoError(t, err) {
				assert.Equal(t, 5, result.FrameCount)
			}
		}()
	}
	wg.Wait()

	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
