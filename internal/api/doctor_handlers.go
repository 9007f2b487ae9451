package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kdimtricp/otoscan/internal/directory"
	"github.com/kdimtricp/otoscan/internal/models"
)

type loginRequest struct {
	MobileNumber string `json:"mobile_number" form:"mobile_number"`
	Password     string `json:"password" form:"password"`
}

func (app *App) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req directory.SignupRequest
	if err := bindRequest(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"status":  false,
			"message": "Doctor creation failed",
			"errors":  map[string][]string{"detail": {err.Error()}},
		})
		return
	}

	doctor, err := app.Doctors.Create(r.Context(), req)
	if err != nil {
		var verr *directory.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"status":  false,
				"message": "Doctor creation failed",
				"errors":  verr.Fields,
			})
			return
		}
		app.requestFailed(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"status":  true,
		"message": "Doctor Created",
		"doctor":  doctor,
	})
}

func (app *App) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := bindRequest(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Please provide both 'mobile_number' and 'password.'")
		return
	}

	doctor, err := app.Doctors.Login(r.Context(), req.MobileNumber, req.Password)
	if err != nil {
		var verr *directory.ValidationError
		switch {
		case errors.As(err, &verr):
			writeMessage(w, http.StatusBadRequest, "Please provide both 'mobile_number' and 'password.'")
		case errors.Is(err, directory.ErrInvalidCredentials):
			writeMessage(w, http.StatusUnauthorized, "Invalid mobile number or password.")
		default:
			app.requestFailed(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  true,
		"message": "Login successful",
		"user":    doctor,
	})
}

func (app *App) ListDoctorsHandler(w http.ResponseWriter, r *http.Request) {
	doctors, err := app.Doctors.List(r.Context())
	if err != nil {
		app.requestFailed(w, r, err)
		return
	}
	if doctors == nil {
		doctors = []models.Doctor{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":        true,
		"message":       "Doctor details listed",
		"doctorDetails": doctors,
	})
}

func (app *App) DeleteDoctorHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusNotFound, "Doctor not found.")
		return
	}

	if err := app.Doctors.Delete(r.Context(), uint(id)); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Doctor not found.")
			return
		}
		app.requestFailed(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
