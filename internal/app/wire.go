// Package app assembles the services shared by the otoscan commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/kdimtricp/otoscan/internal/ai"
	"github.com/kdimtricp/otoscan/internal/classification"
	"github.com/kdimtricp/otoscan/internal/config"
	"github.com/kdimtricp/otoscan/internal/database"
	"github.com/kdimtricp/otoscan/internal/processing"
	"github.com/kdimtricp/otoscan/internal/storage"
)

var (
	errClassifierDisabled = errors.New("classifier not configured: set MODEL_SERVER_URL")
	errExtractorMissing   = errors.New("frame extractor unavailable: ffmpeg and ffprobe are required")
)

// OpenDatabase connects using cfg and applies migrations.
func OpenDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*database.DB, error) {
	db, err := database.NewDB(DatabaseConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	logger.Info("running database migrations", zap.String("path", cfg.MigrationsPath))
	if err := db.RunMigrations(ctx, cfg.MigrationsPath, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

func DatabaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		Type:       cfg.DBType,
		Host:       cfg.DBHost,
		Port:       cfg.DBPort,
		User:       cfg.DBUser,
		Password:   cfg.DBPassword,
		Name:       cfg.DBName,
		SQLitePath: cfg.DBPath,
	}
}

// NewArtifactStore returns the configured store for annotated result images.
func NewArtifactStore(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.StorageBackend {
	case "minio":
		s, err := storage.NewMinIOStorage(storage.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			UseSSL:    cfg.MinIOUseSSL,
			Bucket:    cfg.MinIOBucket,
		})
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return storage.NewLocalStorage(cfg.ResultsDir)
	}
}

// NewClassifier returns the model server client, or a classifier that fails
// every call when no model server is configured.
func NewClassifier(cfg *config.Config) ai.Classifier {
	if !cfg.ClassifierEnabled() {
		return unavailableClassifier{err: errClassifierDisabled}
	}
	return ai.NewModelServerClient(cfg.ModelServerURL, cfg.ModelName, cfg.ClassLabels, cfg.ModelTimeout)
}

// NewExtractor returns the ffmpeg extractor, or one that fails every call
// when the binaries are missing.
func NewExtractor(cfg *config.Config, logger *zap.Logger) classification.Extractor {
	fe, err := ai.NewFrameExtractor(cfg.FFmpegPath, cfg.FFprobePath, logger)
	if err != nil {
		logger.Warn("frame extraction disabled", zap.Error(err))
		return unavailableExtractor{err: fmt.Errorf("%w: %v", errExtractorMissing, err)}
	}
	return fe
}

// Recorders are optional persistence and notification hooks for runs.
type Recorders struct {
	Runs      classification.RunRecorder
	Frames    classification.FrameRecorder
	Publisher classification.Publisher
}

func NewClassificationService(cfg *config.Config, artifacts storage.Storage, rec Recorders, logger *zap.Logger) (*classification.Service, error) {
	annotator, err := ai.NewAnnotator()
	if err != nil {
		return nil, err
	}

	return classification.NewService(classification.Dependencies{
		Extractor:  NewExtractor(cfg, logger),
		Classifier: NewClassifier(cfg),
		Annotator:  annotator,
		Artifacts:  artifacts,
		Runs:       rec.Runs,
		Frames:     rec.Frames,
		Publisher:  rec.Publisher,
		Limiter:    processing.NewLimiter(cfg.MaxConcurrentRuns),
	}, classification.Config{
		Labels: cfg.ClassLabels,
		Extract: ai.ExtractOptions{
			FrameCount:  cfg.FrameCount,
			SkipSeconds: cfg.SkipSeconds,
			TopCrop:     cfg.TopCrop,
			BottomCrop:  cfg.BottomCrop,
		},
		RejectThreshold: cfg.RejectThreshold,
		WorkDir:         cfg.WorkDir,
	}, logger), nil
}

type unavailableClassifier struct{ err error }

func (u unavailableClassifier) Classify(context.Context, image.Image) (*ai.Prediction, error) {
	return nil, u.err
}

type unavailableExtractor struct{ err error }

func (u unavailableExtractor) ExtractFrames(context.Context, string, string, ai.ExtractOptions) ([]ai.ExtractedFrame, error) {
	return nil, u.err
}
