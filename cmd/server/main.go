package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"github.com/kdimtricp/otoscan/internal/api"
	"github.com/kdimtricp/otoscan/internal/app"
	"github.com/kdimtricp/otoscan/internal/config"
	"github.com/kdimtricp/otoscan/internal/database"
	"github.com/kdimtricp/otoscan/internal/directory"
	"github.com/kdimtricp/otoscan/internal/events"
	"github.com/kdimtricp/otoscan/internal/logger"
	"github.com/kdimtricp/otoscan/internal/tracing"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTLPEndpoint != "" {
		tp, err := tracing.InitTracer(ctx, cfg.OTLPEndpoint)
		if err != nil {
			log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
		} else {
			defer tp.Shutdown(context.Background())
		}
	}

	db, err := app.OpenDatabase(ctx, cfg, log)
	fatalOnErr(err, "initialize database")
	defer db.Close()

	artifacts, err := app.NewArtifactStore(ctx, cfg)
	fatalOnErr(err, "initialize artifact storage")

	passwords, err := directory.NewPasswordScheme(cfg.PasswordScheme)
	fatalOnErr(err, "password scheme")
	if cfg.PasswordScheme == "plain" {
		log.Warn("doctor passwords are stored and compared as plain text; set PASSWORD_SCHEME=bcrypt to hash them")
	}

	runs := database.NewClassificationRepository(db)
	frames := database.NewFramePredictionRepo(db)
	recorders := app.Recorders{Runs: runs, Frames: frames}

	if cfg.RabbitMQURL != "" {
		pub, err := events.NewPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange, log)
		if err != nil {
			log.Warn("event publishing disabled", zap.Error(err))
		} else {
			defer pub.Close()
			recorders.Publisher = pub
		}
	}

	classifier, err := app.NewClassificationService(cfg, artifacts, recorders, log)
	fatalOnErr(err, "initialize classification service")
	if !cfg.ClassifierEnabled() {
		log.Warn("MODEL_SERVER_URL not set; uploads will fail until a model server is configured")
	}

	router := api.NewRouter(&api.App{
		Doctors:       directory.NewService(database.NewDoctorRepository(db), passwords, log),
		Classifier:    classifier,
		Runs:          runs,
		Frames:        frames,
		Artifacts:     artifacts,
		MaxUploadSize: cfg.MaxUploadSize,
		Logger:        log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server starting",
			zap.String("port", cfg.Port),
			zap.String("db_type", cfg.DBType),
			zap.String("storage", cfg.StorageBackend),
			zap.String("work_dir", cfg.WorkDir),
			zap.Int64("max_upload_size", cfg.MaxUploadSize),
			zap.Int64("max_concurrent_runs", cfg.MaxConcurrentRuns),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	log.Info("server stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
