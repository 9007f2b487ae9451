package main

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/kdimtricp/otoscan/internal/ai"
	"github.com/kdimtricp/otoscan/internal/app"
	"github.com/kdimtricp/otoscan/internal/config"
	"github.com/kdimtricp/otoscan/internal/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	fmt.Println("🔍 Checking classification pipeline")
	fmt.Println("===================================")

	for _, bin := range []string{cfg.FFmpegPath, cfg.FFprobePath} {
		if path, err := exec.LookPath(bin); err != nil {
			fmt.Printf("❌ %s not found in PATH\n", bin)
		} else {
			fmt.Printf("✅ %s: %s\n", bin, path)
		}
	}
	fmt.Println()

	if !cfg.ClassifierEnabled() {
		fmt.Println("⚠️  WARNING: No model server configured!")
		fmt.Println("   Set MODEL_SERVER_URL to a TensorFlow Serving endpoint")
	} else {
		client := ai.NewModelServerClient(cfg.ModelServerURL, cfg.ModelName, cfg.ClassLabels, cfg.ModelTimeout)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		versions, err := client.Status(ctx)
		cancel()
		if err != nil {
			fmt.Printf("❌ Model server %s: %v\n", cfg.ModelServerURL, err)
		} else {
			fmt.Printf("✅ Model %q at %s\n", cfg.ModelName, cfg.ModelServerURL)
			for _, v := range versions {
				fmt.Printf("   - version %s: %s\n", v.Version, v.State)
			}
		}
		fmt.Printf("   Labels: %v\n", client.Labels())
	}
	fmt.Println()

	db, err := database.NewDB(app.DatabaseConfig(cfg))
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}
	defer db.Close()

	if err := db.RunMigrations(context.Background(), cfg.MigrationsPath, zap.NewNop()); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	runs, err := database.NewClassificationRepository(db).List(context.Background(), 5)
	if err != nil {
		log.Fatal("Failed to list classifications:", err)
	}

	fmt.Println("📊 Recent classifications:")
	fmt.Println("--------------------------")
	if len(runs) == 0 {
		fmt.Println("No classifications recorded yet. Upload a video to test!")
		return
	}

	for _, run := range runs {
		fmt.Printf("\n🩺 %s  %s  (%s)\n", run.CreatedAt.Format(time.RFC3339), run.Filename, run.Status)
		if run.Prediction != "" {
			fmt.Printf("   Prediction: %s\n", run.Prediction)
		}
		fmt.Printf("   Best frame: %s %.4f\n", run.BestFrameLabel, run.BestAccuracy)
		fmt.Printf("   Counts: %v over %d frames\n", run.Counts, run.FrameCount)
	}
}
