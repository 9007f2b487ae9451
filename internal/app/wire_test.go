package app

import (
	"context"
	"image"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kdimtricp/otoscan/internal/ai"
	"github.com/kdimtricp/otoscan/internal/config"
	"github.com/kdimtricp/otoscan/internal/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.DBPath = filepath.Join(t.TempDir(), "otoscan.db")
	cfg.ResultsDir = t.TempDir()
	cfg.WorkDir = t.TempDir()
	return cfg
}

func TestOpenDatabaseSQLite(t *testing.T) {
	db, err := OpenDatabase(context.Background(), testConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, "sqlite", db.Type())
}

func TestNewArtifactStoreDefaultsToLocal(t *testing.T) {
	s, err := NewArtifactStore(context.Background(), testConfig(t))
	require.NoError(t, err)
	assert.IsType(t, &storage.LocalStorage{}, s)
}

func TestNewClassifier(t *testing.T) {
	cfg := testConfig(t)

	_, err := NewClassifier(cfg).Classify(context.Background(), image.NewRGBA(image.Rect(0, 0, 1, 1)))
	assert.ErrorIs(t, err, errClassifierDisabled)

	cfg.ModelServerURL = "http://models:8501"
	assert.IsType(t, &ai.ModelServerClient{}, NewClassifier(cfg))
}

func TestNewExtractorMissingBinaries(t *testing.T) {
	cfg := testConfig(t)
	cfg.FFmpegPath = "/nonexistent/ffmpeg"

	_, err := NewExtractor(cfg, zap.NewNop()).ExtractFrames(context.Background(), "in.mp4", t.TempDir(), ai.DefaultExtractOptions())
	assert.ErrorIs(t, err, errExtractorMissing)
}

func TestNewClassificationService(t *testing.T) {
	cfg := testConfig(t)
	artifacts, err := NewArtifactStore(context.Background(), cfg)
	require.NoError(t, err)

	svc, err := NewClassificationService(cfg, artifacts, Recorders{}, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, svc)
}
