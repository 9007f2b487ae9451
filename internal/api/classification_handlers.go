package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kdimtricp/otoscan/internal/classification"
	"github.com/kdimtricp/otoscan/internal/database"
	"github.com/kdimtricp/otoscan/internal/models"
	"github.com/kdimtricp/otoscan/internal/models/frame_prediction"
	"github.com/kdimtricp/otoscan/internal/storage"
)

const multipartMemory = 32 << 20

func (app *App) UploadHandler(w http.ResponseWriter, r *http.Request) {
	if app.MaxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, app.MaxUploadSize)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		app.videoFailed(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("video")
	if err != nil {
		app.videoFailed(w, r, err)
		return
	}
	defer file.Close()

	result, err := app.Classifier.Classify(r.Context(), file, header.Filename)
	if err != nil {
		var rejection *classification.RejectionError
		if errors.As(err, &rejection) {
			writeMessage(w, http.StatusBadRequest, rejection.Error())
			return
		}
		app.requestFailed(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":            true,
		"message":           "Video processing completed.",
		"best_image":        result.ImageBase64,
		"best_prediction":   result.Prediction,
		"best_accuracy":     result.BestAccuracy,
		"classification_id": result.ID,
	})
}

// videoFailed answers an upload without a usable video file.
func (app *App) videoFailed(w http.ResponseWriter, r *http.Request, err error) {
	app.logger().Warn("upload without video", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"status":          false,
		"message":         "Video processing failed.",
		"best_image":      nil,
		"best_prediction": nil,
		"best_accuracy":   nil,
	})
}

func (app *App) ListClassificationsHandler(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	runs, err := app.Runs.List(r.Context(), limit)
	if err != nil {
		app.requestFailed(w, r, err)
		return
	}
	if runs == nil {
		runs = []models.Classification{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":          true,
		"message":         "Classifications listed",
		"classifications": runs,
	})
}

func (app *App) GetClassificationHandler(w http.ResponseWriter, r *http.Request) {
	run, ok := app.loadRun(w, r)
	if !ok {
		return
	}

	frames, err := app.Frames.GetByClassificationID(r.Context(), run.ID)
	if err != nil {
		app.requestFailed(w, r, err)
		return
	}
	if frames == nil {
		frames = []*frame_prediction.FramePredictionDB{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         true,
		"message":        "Classification details",
		"classification": run,
		"frames":         frames,
	})
}

func (app *App) ClassificationImageHandler(w http.ResponseWriter, r *http.Request) {
	run, ok := app.loadRun(w, r)
	if !ok {
		return
	}
	if run.ImageKey == "" || app.Artifacts == nil {
		writeMessage(w, http.StatusNotFound, "Image not found.")
		return
	}

	img, err := app.Artifacts.OpenFile(r.Context(), run.ImageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Image not found.")
			return
		}
		app.requestFailed(w, r, err)
		return
	}
	defer img.Close()

	w.Header().Set("Content-Type", "image/jpeg")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, img); err != nil {
		app.logger().Warn("failed to stream image", zap.String("key", run.ImageKey), zap.Error(err))
	}
}

func (app *App) loadRun(w http.ResponseWriter, r *http.Request) (*models.Classification, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeMessage(w, http.StatusNotFound, "Classification not found.")
		return nil, false
	}

	run, err := app.Runs.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Classification not found.")
			return nil, false
		}
		app.requestFailed(w, r, err)
		return nil, false
	}
	return run, true
}
