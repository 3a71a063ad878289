package config

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Root     string `env:"ROOT" envDefault:"./leaf-data"`
	Port     int    `env:"PORT" envDefault:"5000"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Defaults to a sqlite file under Root.
	DatabaseURL string `env:"DATABASE_URL"`

	ModelPath        string `env:"MODEL_PATH" envDefault:"tomato_model.onnx"`
	ModelType        string `env:"MODEL_TYPE" envDefault:"onnx"`
	OnnxRuntimeDylib string `env:"ONNX_RUNTIME_DYLIB"`

	UploadDir           string        `env:"UPLOAD_DIR"`
	MaxUploadBytes      int64         `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`
	RecommendationsFile string        `env:"RECOMMENDATIONS_FILE"`
	SessionSecret       string        `env:"SESSION_SECRET"`
	SessionTTL          time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	SessionReapInterval time.Duration `env:"SESSION_REAP_INTERVAL" envDefault:"1h"`
	HistoryCacheSize    int           `env:"HISTORY_CACHE_SIZE" envDefault:"128"`

	ArchiveUploads    bool   `env:"ARCHIVE_UPLOADS" envDefault:"false"`
	ArchiveBucket     string `env:"ARCHIVE_BUCKET" envDefault:"leaf-uploads"`
	RabbitMQURL       string `env:"RABBITMQ_URL"`
	S3EndpointURL     string `env:"S3_ENDPOINT_URL"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	S3Region          string `env:"AWS_REGION" envDefault:"us-east-1"`
}

func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = filepath.Join(cfg.Root, "db", "leaf.db")
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = filepath.Join(cfg.Root, "uploads")
	}

	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive, got %s", cfg.SessionTTL)
	}
	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", cfg.MaxUploadBytes)
	}

	if cfg.S3EndpointURL != "" && (cfg.S3AccessKeyID == "" || cfg.S3SecretAccessKey == "") {
		log.Println("Warning: S3_ENDPOINT_URL is set, but AWS_ACCESS_KEY_ID or AWS_SECRET_ACCESS_KEY are missing.")
	}

	return &cfg, nil
}

// UseS3 reports whether archived uploads go to S3 rather than a local directory.
func (c *Config) UseS3() bool {
	return c.S3EndpointURL != "" || c.S3AccessKeyID != ""
}

// ObjectStoreDir is where archived uploads live when S3 is not configured.
func (c *Config) ObjectStoreDir() string {
	return filepath.Join(c.Root, "storage")
}
