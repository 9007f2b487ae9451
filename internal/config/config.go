package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port          string `env:"PORT"            envDefault:"8080"`
	MaxUploadSize int64  `env:"MAX_UPLOAD_SIZE" envDefault:"104857600"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	DBType         string `env:"DB_TYPE"         envDefault:"sqlite"`
	DBPath         string `env:"DB_PATH"         envDefault:"./otoscan.db"`
	DBHost         string `env:"DB_HOST"         envDefault:"localhost"`
	DBPort         int    `env:"DB_PORT"         envDefault:"5432"`
	DBUser         string `env:"DB_USER"         envDefault:"otoscan"`
	DBPassword     string `env:"DB_PASSWORD"     envDefault:"otoscan_dev"`
	DBName         string `env:"DB_NAME"         envDefault:"otoscan"`
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"./migrations"`

	PasswordScheme string `env:"PASSWORD_SCHEME" envDefault:"plain"`

	WorkDir           string   `env:"WORK_DIR"`
	FrameCount        int      `env:"FRAME_COUNT"         envDefault:"30"`
	SkipSeconds       int      `env:"SKIP_SECONDS"        envDefault:"2"`
	TopCrop           int      `env:"TOP_CROP"            envDefault:"50"`
	BottomCrop        int      `env:"BOTTOM_CROP"         envDefault:"50"`
	RejectThreshold   int      `env:"REJECT_THRESHOLD"    envDefault:"22"`
	ClassLabels       []string `env:"CLASS_LABELS"        envDefault:"aom,csom,earwax,normal" envSeparator:","`
	MaxConcurrentRuns int64    `env:"MAX_CONCURRENT_RUNS" envDefault:"1"`
	FFmpegPath        string   `env:"FFMPEG_PATH"         envDefault:"ffmpeg"`
	FFprobePath       string   `env:"FFPROBE_PATH"        envDefault:"ffprobe"`

	ModelServerURL string        `env:"MODEL_SERVER_URL"`
	ModelName      string        `env:"MODEL_NAME"       envDefault:"vgg16"`
	ModelTimeout   time.Duration `env:"MODEL_TIMEOUT"    envDefault:"30s"`

	StorageBackend string `env:"STORAGE_BACKEND"  envDefault:"local"`
	ResultsDir     string `env:"RESULTS_DIR"      envDefault:"./results"`
	MinIOEndpoint  string `env:"MINIO_ENDPOINT"   envDefault:"localhost:9000"`
	MinIOAccessKey string `env:"MINIO_ACCESS_KEY" envDefault:"minioadmin"`
	MinIOSecretKey string `env:"MINIO_SECRET_KEY" envDefault:"minioadmin"`
	MinIOUseSSL    bool   `env:"MINIO_USE_SSL"    envDefault:"false"`
	MinIOBucket    string `env:"MINIO_BUCKET"     envDefault:"otoscan-results"`

	RabbitMQURL      string `env:"RABBITMQ_URL"`
	RabbitMQExchange string `env:"RABBITMQ_EXCHANGE" envDefault:"otoscan.classification"`

	OTLPEndpoint string `env:"OTLP_ENDPOINT"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = filepath.Join(os.TempDir(), "otoscan")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.DBType {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DB_TYPE: %s", c.DBType)
	}
	switch c.PasswordScheme {
	case "plain", "bcrypt":
	default:
		return fmt.Errorf("unsupported PASSWORD_SCHEME: %s", c.PasswordScheme)
	}
	switch c.StorageBackend {
	case "local", "minio":
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND: %s", c.StorageBackend)
	}
	if c.FrameCount <= 0 {
		return fmt.Errorf("FRAME_COUNT must be positive, got %d", c.FrameCount)
	}
	if c.SkipSeconds < 0 || c.TopCrop < 0 || c.BottomCrop < 0 {
		return fmt.Errorf("SKIP_SECONDS, TOP_CROP and BOTTOM_CROP must not be negative")
	}
	if c.RejectThreshold < 0 {
		return fmt.Errorf("REJECT_THRESHOLD must not be negative, got %d", c.RejectThreshold)
	}
	if c.MaxConcurrentRuns < 1 {
		return fmt.Errorf("MAX_CONCURRENT_RUNS must be at least 1, got %d", c.MaxConcurrentRuns)
	}
	if len(c.ClassLabels) == 0 {
		return fmt.Errorf("CLASS_LABELS must not be empty")
	}
	return nil
}

// ClassifierEnabled reports whether a model server is configured.
func (c *Config) ClassifierEnabled() bool {
	return c.ModelServerURL != ""
}
