package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.StripSlashes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(app.logger()))
	r.Use(middleware.Recoverer)

	r.Get("/ping", PingHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/signup", app.SignupHandler)
	r.Post("/login", app.LoginHandler)
	r.Get("/view-all-doctors", app.ListDoctorsHandler)
	r.Delete("/doctors/{id}", app.DeleteDoctorHandler)

	r.Post("/upload", app.UploadHandler)
	r.Route("/classifications", func(r chi.Router) {
		r.Get("/", app.ListClassificationsHandler)
		r.Get("/{id}", app.GetClassificationHandler)
		r.Get("/{id}/image", app.ClassificationImageHandler)
	})

	return r
}
