package classification

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/kdimtricp/otoscan/internal/ai"
	"github.com/kdimtricp/otoscan/internal/events"
	"github.com/kdimtricp/otoscan/internal/metrics"
	"github.com/kdimtricp/otoscan/internal/models"
	"github.com/kdimtricp/otoscan/internal/models/frame_prediction"
	"github.com/kdimtricp/otoscan/internal/processing"
	"github.com/kdimtricp/otoscan/internal/storage"
)

const tracerName = "github.com/kdimtricp/otoscan/internal/classification"

type Extractor interface {
	ExtractFrames(ctx context.Context, videoPath, outputDir string, opts ai.ExtractOptions) ([]ai.ExtractedFrame, error)
}

type RunRecorder interface {
	Insert(ctx context.Context, run *models.Classification) error
}

type FrameRecorder interface {
	CreateBatch(ctx context.Context, predictions []*frame_prediction.FramePredictionDB) error
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event events.ClassificationEvent) error
}

// Dependencies are the collaborators of a Service. Runs, Frames, Publisher
// and Limiter are optional.
type Dependencies struct {
	Extractor  Extractor
	Classifier ai.Classifier
	Annotator  *ai.Annotator
	Artifacts  storage.Storage
	Runs       RunRecorder
	Frames     FrameRecorder
	Publisher  Publisher
	Limiter    processing.Runner
}

type Config struct {
	Labels          []string
	Extract         ai.ExtractOptions
	RejectThreshold int
	WorkDir         string
}

type Service struct {
	deps   Dependencies
	config Config
	logger *zap.Logger
}

func NewService(deps Dependencies, config Config, logger *zap.Logger) *Service {
	if len(config.Labels) == 0 {
		config.Labels = ai.DefaultLabels
	}
	if config.Extract.FrameCount == 0 {
		config.Extract = ai.DefaultExtractOptions()
	}
	// Zero is a valid threshold: any label seen at all rejects the run.
	if config.RejectThreshold < 0 {
		config.RejectThreshold = DefaultRejectThreshold
	}
	if config.WorkDir == "" {
		config.WorkDir = filepath.Join(os.TempDir(), "otoscan")
	}
	if deps.Limiter == nil {
		deps.Limiter = processing.NewLimiter(1)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{deps: deps, config: config, logger: logger}
}

// Classify runs the full pipeline over one uploaded video. A run where one
// label dominates returns *RejectionError; an unreadable video returns an
// error wrapping ai.ErrDecoding.
func (s *Service) Classify(ctx context.Context, video io.Reader, filename string) (*Result, error) {
	var result *Result
	err := s.deps.Limiter.Run(ctx, func() error {
		var err error
		result, err = s.run(ctx, video, filename)
		return err
	})

	var rejection *RejectionError
	switch {
	case err == nil:
		metrics.ClassificationRunsTotal.WithLabelValues("completed").Inc()
	case errors.As(err, &rejection):
		metrics.ClassificationRunsTotal.WithLabelValues("rejected").Inc()
	case errors.Is(err, ai.ErrDecoding):
		metrics.ClassificationRunsTotal.WithLabelValues("decoding_error").Inc()
	default:
		metrics.ClassificationRunsTotal.WithLabelValues("failed").Inc()
	}
	return result, err
}

func (s *Service) run(ctx context.Context, video io.Reader, filename string) (*Result, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "classification.Run")
	defer span.End()

	metrics.ActiveRuns.Inc()
	defer metrics.ActiveRuns.Dec()

	run := models.NewClassification(filename)
	span.SetAttributes(
		attribute.String("run.id", run.ID),
		attribute.String("run.filename", filename),
	)
	log := s.logger.With(zap.String("run_id", run.ID), zap.String("filename", filename))
	log.Debug("stage", zap.String("from", string(StageIdle)), zap.String("to", string(StageExtracting)))

	ws, err := storage.NewWorkspace(s.config.WorkDir)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer func() {
		if err := ws.Cleanup(); err != nil {
			log.Warn("failed to remove workspace", zap.String("dir", ws.Dir()), zap.Error(err))
		}
	}()

	var frames []ai.ExtractedFrame
	err = s.stage(ctx, StageExtracting, func(ctx context.Context) error {
		videoPath, err := ws.SaveUpload(video, filename)
		if err != nil {
			return err
		}
		frames, err = s.deps.Extractor.ExtractFrames(ctx, videoPath, ws.FramesDir(), s.config.Extract)
		if err != nil {
			return fmt.Errorf("extract frames: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Error("frame extraction failed", zap.Error(err))
		return nil, err
	}

	tally := NewTally(s.config.Labels)
	var samples []FrameSample
	err = s.stage(ctx, StageInferring, func(ctx context.Context) error {
		samples, err = s.infer(ctx, ws.FramesDir(), frames, tally)
		return err
	})
	if err != nil {
		log.Error("frame inference failed", zap.Error(err))
		return nil, err
	}

	counts := tally.Counts()
	_, bestLabel, bestConfidence := tally.Best()
	run.Counts = counts
	run.FrameCount = tally.Frames()
	run.BestAccuracy = bestConfidence
	run.BestFrameLabel = bestLabel

	if label, count, ok := tally.Exceeds(s.config.RejectThreshold); ok {
		log.Info("run rejected",
			zap.String("label", label),
			zap.Int("count", count),
			zap.Int("threshold", s.config.RejectThreshold),
		)
		log.Debug("stage", zap.String("from", string(StageInferring)), zap.String("to", string(StageRejected)))
		run.Status = models.ClassificationRejected
		s.record(ctx, log, run, samples)
		return nil, &RejectionError{Label: label, Count: count, Threshold: s.config.RejectThreshold}
	}

	var winner string
	err = s.stage(ctx, StageAggregating, func(context.Context) error {
		winner = tally.Winner()
		if winner == "" {
			return fmt.Errorf("no label won the vote")
		}
		return nil
	})
	if err != nil {
		log.Error("aggregation failed", zap.Error(err))
		return nil, err
	}
	run.Prediction = winner

	result := &Result{
		ID:             run.ID,
		Prediction:     winner,
		BestAccuracy:   bestConfidence,
		BestFrameLabel: bestLabel,
		Counts:         counts,
		FrameCount:     tally.Frames(),
		Frames:         samples,
	}

	err = s.stage(ctx, StageResponding, func(ctx context.Context) error {
		best, _, _ := tally.Best()
		annotated := s.deps.Annotator.Annotate(best, winner, bestConfidence)
		data, err := ai.EncodeJPEG(annotated)
		if err != nil {
			return err
		}
		result.Image = data
		result.ImageBase64 = base64.StdEncoding.EncodeToString(data)

		if s.deps.Artifacts != nil {
			key, err := s.deps.Artifacts.SaveFile(ctx, bytes.NewReader(data), storage.FileInfo{
				Filename:    run.ID + ".jpg",
				ContentType: "image/jpeg",
				Size:        int64(len(data)),
			})
			if err != nil {
				log.Warn("failed to store annotated image", zap.Error(err))
			} else {
				result.ImageKey = key
			}
		}
		return nil
	})
	if err != nil {
		log.Error("response assembly failed", zap.Error(err))
		return nil, err
	}

	run.Status = models.ClassificationCompleted
	run.ImageKey = result.ImageKey
	s.record(ctx, log, run, samples)

	log.Info("run completed",
		zap.String("prediction", winner),
		zap.Float64("best_accuracy", bestConfidence),
		zap.String("best_frame_label", bestLabel),
		zap.Any("counts", counts),
	)
	log.Debug("stage", zap.String("from", string(StageResponding)), zap.String("to", string(StageIdle)))
	return result, nil
}

// infer classifies every frame in framesDir in directory listing order.
// Frame file names are zero padded, so listing order is extraction order.
func (s *Service) infer(ctx context.Context, framesDir string, frames []ai.ExtractedFrame, tally *Tally) ([]FrameSample, error) {
	byName := make(map[string]ai.ExtractedFrame, len(frames))
	for _, f := range frames {
		byName[filepath.Base(f.Path)] = f
	}

	entries, err := os.ReadDir(framesDir)
	if err != nil {
		return nil, fmt.Errorf("read frames dir: %w", err)
	}

	samples := make([]FrameSample, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, err := decodeFrame(filepath.Join(framesDir, entry.Name()))
		if err != nil {
			return nil, err
		}

		p, err := s.deps.Classifier.Classify(ctx, img)
		if err != nil {
			return nil, fmt.Errorf("classify %s: %w", entry.Name(), err)
		}
		if err := tally.Add(img, p); err != nil {
			return nil, err
		}

		metrics.FramesClassifiedTotal.Inc()
		metrics.FramePredictionsTotal.WithLabelValues(p.Label).Inc()

		f := byName[entry.Name()]
		samples = append(samples, FrameSample{Position: f.Position, Index: f.Index, Prediction: *p})
	}

	if tally.Frames() == 0 {
		return nil, fmt.Errorf("%w: no frames to classify", ai.ErrDecoding)
	}
	return samples, nil
}

func decodeFrame(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frame: %w", err)
	}
	defer f.Close()

	img, err := jpeg.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode frame %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

func (s *Service) stage(ctx context.Context, stage Stage, fn func(ctx context.Context) error) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "classification."+string(stage))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	metrics.StageDuration.WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// record persists the run and announces it. Failures are logged only.
func (s *Service) record(ctx context.Context, log *zap.Logger, run *models.Classification, samples []FrameSample) {
	if s.deps.Runs != nil {
		if err := s.deps.Runs.Insert(ctx, run); err != nil {
			log.Warn("failed to record run", zap.Error(err))
		} else if s.deps.Frames != nil && len(samples) > 0 {
			rows := make([]*frame_prediction.FramePredictionDB, 0, len(samples))
			for _, sample := range samples {
				probs, err := json.Marshal(sample.Prediction.Probabilities)
				if err != nil {
					log.Warn("failed to encode frame probabilities",
						zap.Int("position", sample.Position),
						zap.Error(err),
					)
					probs = nil
				}
				rows = append(rows, &frame_prediction.FramePredictionDB{
					ClassificationID: run.ID,
					Position:         sample.Position,
					FrameIndex:       sample.Index,
					Label:            sample.Prediction.Label,
					Confidence:       sample.Prediction.Confidence,
					Probabilities:    probs,
					CreatedAt:        run.CreatedAt,
				})
			}
			if err := s.deps.Frames.CreateBatch(ctx, rows); err != nil {
				log.Warn("failed to record frame predictions", zap.Error(err))
			}
		}
	}

	if s.deps.Publisher != nil {
		routingKey := events.RoutingCompleted
		if run.Status == models.ClassificationRejected {
			routingKey = events.RoutingRejected
		}
		err := s.deps.Publisher.Publish(ctx, routingKey, events.ClassificationEvent{
			ID:             run.ID,
			Status:         run.Status,
			Prediction:     run.Prediction,
			BestAccuracy:   run.BestAccuracy,
			BestFrameLabel: run.BestFrameLabel,
			Counts:         run.Counts,
			FrameCount:     run.FrameCount,
			ImageKey:       run.ImageKey,
		})
		if err != nil {
			log.Warn("failed to publish run event", zap.Error(err))
		}
	}
}
