package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"leaf-backend/internal/config"
	"leaf-backend/internal/core"
	"leaf-backend/internal/messaging"
	"leaf-backend/internal/storage"

	"github.com/joho/godotenv"
	ort "github.com/yalue/onnxruntime_go"
	"gopkg.in/natefinch/lumberjack.v2"
)

func LoadEnvFile() {
	var configPath string

	flag.StringVar(&configPath, "env", "", "path to load env from")
	flag.Parse()

	if configPath == "" {
		log.Printf("no env file specified, using os.Environ only")
		return
	}

	log.Printf("loading env from file %s", configPath)
	err := godotenv.Load(configPath)
	if err != nil {
		log.Fatalf("error loading .env file '%s': %v", configPath, err)
	}
}

// SetupLogging mirrors the standard logger, and therefore the default slog
// handler, to stderr and a rotated log file under root.
func SetupLogging(root, level string) io.Closer {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if err := os.MkdirAll(root, os.ModePerm); err != nil {
		log.Fatalf("error creating directory for log file: %v", err)
	}

	logFile := &lumberjack.Logger{
		Filename:   filepath.Join(root, "backend.log"),
		MaxSize:    50, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	log.SetOutput(io.MultiWriter(logFile, os.Stderr))

	var slogLevel slog.Level
	if err := slogLevel.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		log.Printf("invalid log level %q, using info", level)
		slogLevel = slog.LevelInfo
	}
	slog.SetLogLoggerLevel(slogLevel)

	return logFile
}

// InitOnnxRuntime initializes the shared onnxruntime environment. The returned
// func tears it down.
func InitOnnxRuntime(dylib string) func() {
	if dylib == "" {
		log.Fatalf("ONNX_RUNTIME_DYLIB must be set")
	}
	ort.SetSharedLibraryPath(dylib)
	if err := ort.InitializeEnvironment(); err != nil {
		log.Fatalf("could not init ONNX Runtime: %v", err)
	}
	return func() {
		if err := ort.DestroyEnvironment(); err != nil {
			slog.Error("error destroying onnx env", "error", err)
		}
	}
}

func LoadClassifier(modelType, modelPath string) *core.Classifier {
	model, err := core.LoadModel(core.ModelType(modelType), modelPath)
	if err != nil {
		log.Fatalf("could not load leaf model: %v", err)
	}
	return core.NewClassifier(model)
}

func CreateObjectStore(ctx context.Context, cfg *config.Config) (storage.ObjectStore, error) {
	var objects storage.ObjectStore
	if cfg.UseS3() {
		s3Store, err := storage.NewS3ObjectStore(storage.S3ClientConfig{
			Endpoint:        cfg.S3EndpointURL,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating s3 object store: %w", err)
		}
		slog.Info("archiving uploads to s3", "endpoint", cfg.S3EndpointURL, "bucket", cfg.ArchiveBucket)
		objects = s3Store
	} else {
		localStore, err := storage.NewLocalObjectStore(cfg.ObjectStoreDir())
		if err != nil {
			return nil, fmt.Errorf("error creating local object store: %w", err)
		}
		slog.Info("archiving uploads to local storage", "dir", cfg.ObjectStoreDir(), "bucket", cfg.ArchiveBucket)
		objects = localStore
	}

	if err := objects.CreateBucket(ctx, cfg.ArchiveBucket); err != nil {
		return nil, err
	}
	return objects, nil
}

func CreateQueue(cfg *config.Config) (messaging.Publisher, messaging.Reciever, error) {
	if cfg.RabbitMQURL == "" {
		queue := messaging.NewInMemoryQueue()
		return queue, queue, nil
	}

	publisher, err := messaging.NewRabbitMQPublisher(cfg.RabbitMQURL)
	if err != nil {
		return nil, nil, err
	}

	reciever, err := messaging.NewRabbitMQReceiver(cfg.RabbitMQURL)
	if err != nil {
		publisher.Close()
		return nil, nil, err
	}

	return publisher, reciever, nil
}
