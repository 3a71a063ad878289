package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leaf-backend/cmd"
	"leaf-backend/internal/api"
	"leaf-backend/internal/archive"
	"leaf-backend/internal/config"
	"leaf-backend/internal/core"
	"leaf-backend/internal/database"
	"leaf-backend/internal/history"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
)

func createArchiver(cfg *config.Config, store *history.Store) *archive.Archiver {
	objects, err := cmd.CreateObjectStore(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to create object store: %v", err)
	}

	publisher, reciever, err := cmd.CreateQueue(cfg)
	if err != nil {
		log.Fatalf("Failed to create archive queue: %v", err)
	}

	return archive.NewArchiver(store, objects, cfg.ArchiveBucket, publisher, reciever)
}

func createServer(cfg *config.Config, service *api.LeafService) *http.Server {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300, // Cache preflight response for 5 minutes
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	service.AddRoutes(r)

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}
}

func main() {
	cmd.LoadEnvFile()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logFile := cmd.SetupLogging(cfg.Root, cfg.LogLevel)
	defer logFile.Close()

	slog.Info("starting leaf backend", "root", cfg.Root, "port", cfg.Port, "model_path", cfg.ModelPath, "model_type", cfg.ModelType, "archive_uploads", cfg.ArchiveUploads)

	destroyOnnx := cmd.InitOnnxRuntime(cfg.OnnxRuntimeDylib)
	defer destroyOnnx()

	classifier := cmd.LoadClassifier(cfg.ModelType, cfg.ModelPath)
	defer classifier.Release()

	recommendations, err := core.LoadRecommendations(cfg.RecommendationsFile)
	if err != nil {
		log.Fatalf("Failed to load recommendations: %v", err)
	}

	stager, err := core.NewUploadStager(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Failed to create upload dir: %v", err)
	}

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	store, err := history.NewStore(db, cfg.HistoryCacheSize)
	if err != nil {
		log.Fatalf("Failed to create history store: %v", err)
	}

	var archiver *archive.Archiver
	if cfg.ArchiveUploads {
		archiver = createArchiver(cfg, store)
		archiver.Start()
	}

	reaper := history.NewReaper(store, cfg.SessionTTL, cfg.SessionReapInterval)
	if archiver != nil {
		reaper.OnExpire = func(ctx context.Context, sessionId uuid.UUID) {
			if err := archiver.DeleteSession(ctx, sessionId); err != nil {
				slog.Error("error deleting archived uploads for expired session", "session_id", sessionId, "error", err)
			}
		}
	}
	reaper.Start()

	service := api.NewLeafService(
		store,
		classifier,
		recommendations,
		stager,
		api.NewSessionCodec([]byte(cfg.SessionSecret), cfg.SessionTTL),
		archiver,
		cfg.MaxUploadBytes,
	)

	server := createServer(cfg, service)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		slog.Info("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}

		reaper.Stop()
		if archiver != nil {
			slog.Info("shutting down archiver")
			archiver.Stop()
		}
	}()

	slog.Info("server started", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %d: %v\n", cfg.Port, err)
	}

	<-stopped
	slog.Info("server stopped")
}
