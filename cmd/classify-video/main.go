package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/kdimtricp/otoscan/internal/app"
	"github.com/kdimtricp/otoscan/internal/classification"
	"github.com/kdimtricp/otoscan/internal/config"
	"github.com/kdimtricp/otoscan/internal/logger"
)

func main() {
	var (
		videoPath = flag.String("video", "", "Path to the otoscopy video to classify")
		output    = flag.String("out", "best_image.jpg", "Where to write the annotated best frame")
		verbose   = flag.Bool("v", false, "Print per-frame predictions")
	)
	flag.Parse()

	if *videoPath == "" {
		log.Fatal("Please provide a video with -video flag")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	zl, err := logger.New(cfg.LogLevel, "console")
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer zl.Sync()

	video, err := os.Open(*videoPath)
	if err != nil {
		log.Fatal("Failed to open video:", err)
	}
	defer video.Close()

	svc, err := app.NewClassificationService(cfg, nil, app.Recorders{}, zl)
	if err != nil {
		zl.Fatal("failed to initialize classification service", zap.Error(err))
	}

	fmt.Printf("Classifying %s...\n", *videoPath)

	result, err := svc.Classify(context.Background(), video, *videoPath)
	var rejection *classification.RejectionError
	switch {
	case errors.As(err, &rejection):
		fmt.Printf("Rejected: %s has %d frames (threshold %d)\n", rejection.Label, rejection.Count, rejection.Threshold)
		os.Exit(2)
	case err != nil:
		zl.Fatal("classification failed", zap.Error(err))
	}

	fmt.Printf("Prediction:       %s\n", result.Prediction)
	fmt.Printf("Best accuracy:    %g (%s)\n", result.BestAccuracy, result.BestFrameLabel)
	fmt.Printf("Frames:           %d\n", result.FrameCount)

	labels := make([]string, 0, len(result.Counts))
	for l := range result.Counts {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	for _, l := range labels {
		fmt.Printf("  %-8s %d\n", l, result.Counts[l])
	}

	if *verbose {
		for _, f := range result.Frames {
			fmt.Printf("  frame %02d (index %d): %s %.4f\n", f.Position, f.Index, f.Prediction.Label, f.Prediction.Confidence)
		}
	}

	if err := os.WriteFile(*output, result.Image, 0644); err != nil {
		zl.Fatal("failed to write annotated image", zap.Error(err))
	}
	fmt.Printf("Annotated image written to %s\n", *output)
}
