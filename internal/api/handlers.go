package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/form/v4"
	"go.uber.org/zap"

	"github.com/kdimtricp/otoscan/internal/classification"
	"github.com/kdimtricp/otoscan/internal/directory"
	"github.com/kdimtricp/otoscan/internal/models"
	"github.com/kdimtricp/otoscan/internal/models/frame_prediction"
	"github.com/kdimtricp/otoscan/internal/storage"
)

type DoctorService interface {
	Create(ctx context.Context, req directory.SignupRequest) (*models.Doctor, error)
	Login(ctx context.Context, mobileNumber, password string) (*models.Doctor, error)
	List(ctx context.Context) ([]models.Doctor, error)
	Delete(ctx context.Context, id uint) error
}

type VideoClassifier interface {
	Classify(ctx context.Context, video io.Reader, filename string) (*classification.Result, error)
}

type RunReader interface {
	GetByID(ctx context.Context, id string) (*models.Classification, error)
	List(ctx context.Context, limit int) ([]models.Classification, error)
}

type FrameReader interface {
	GetByClassificationID(ctx context.Context, classificationID string) ([]*frame_prediction.FramePredictionDB, error)
}

type App struct {
	Doctors       DoctorService
	Classifier    VideoClassifier
	Runs          RunReader
	Frames        FrameReader
	Artifacts     storage.Storage
	MaxUploadSize int64
	Logger        *zap.Logger
}

func (app *App) logger() *zap.Logger {
	if app.Logger == nil {
		return zap.NewNop()
	}
	return app.Logger
}

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"status": false, "message": message})
}

// requestFailed reports an unexpected error with its raw text.
func (app *App) requestFailed(w http.ResponseWriter, r *http.Request, err error) {
	app.logger().Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeMessage(w, http.StatusInternalServerError, "Error: Request failed. "+err.Error())
}

var formDecoder = form.NewDecoder()

// bindRequest fills dst from a JSON body or, for any other content type, from
// form fields matched by dst's form tags.
func bindRequest(r *http.Request, dst any) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return json.NewDecoder(r.Body).Decode(dst)
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			return err
		}
	} else if err := r.ParseForm(); err != nil {
		return err
	}

	return formDecoder.Decode(dst, r.Form)
}
