package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/presenca/internal/api"
	"github.com/your-org/presenca/internal/attendance"
	"github.com/your-org/presenca/internal/audit"
	"github.com/your-org/presenca/internal/config"
	"github.com/your-org/presenca/internal/observability"
	"github.com/your-org/presenca/internal/quality"
	"github.com/your-org/presenca/internal/queue"
	"github.com/your-org/presenca/internal/registry"
	"github.com/your-org/presenca/internal/session"
	"github.com/your-org/presenca/internal/storage"
	"github.com/your-org/presenca/internal/vision"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	_ = godotenv.Load()

	var cfg *config.Config
	if _, err := os.Stat(*configPath); err == nil {
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg = config.Default()
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting facial attendance service", "port", cfg.Server.Port)

	// Initialize ONNX Runtime and the vision engine
	ort.SetSharedLibraryPath(getONNXLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		slog.Error("init onnx runtime", "error", err)
		os.Exit(1)
	}
	defer ort.DestroyEnvironment()

	engine, err := vision.NewEngine(cfg.Vision)
	if err != nil {
		slog.Error("init vision engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	// Reference photo storage
	var store storage.BlobStore
	switch cfg.Storage.Backend {
	case "minio":
		minioStore, err := storage.NewMinIOStore(cfg.MinIO)
		if err != nil {
			slog.Error("connect to minio", "error", err)
			os.Exit(1)
		}
		if err := minioStore.EnsureBucket(context.Background()); err != nil {
			slog.Warn("ensure minio bucket", "error", err)
		}
		store = minioStore
	default:
		fsStore, err := storage.NewFSStore(cfg.Storage.DataDir)
		if err != nil {
			slog.Error("open storage dir", "error", err)
			os.Exit(1)
		}
		store = fsStore
	}

	// Optional audit event mirror
	var sink audit.Sink
	if cfg.NATS.URL != "" {
		publisher, err := queue.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Error("connect to nats", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		if err := publisher.EnsureStream(context.Background()); err != nil {
			slog.Warn("ensure nats stream", "error", err)
		}
		sink = publisher
	}

	auditLog, err := audit.New(cfg.Storage.LogsDir, sink)
	if err != nil {
		slog.Error("open audit log", "error", err)
		os.Exit(1)
	}
	defer auditLog.Close()

	reg := registry.New(store, engine)
	sessions := session.NewCache(cfg.Session.TTL)

	attendanceSvc, err := attendance.NewService(reg, engine, sessions, auditLog, cfg.Storage.UploadsDir)
	if err != nil {
		slog.Error("init attendance service", "error", err)
		os.Exit(1)
	}

	evaluator := quality.NewEvaluator(engine)

	router := api.NewRouter(api.RouterConfig{
		APIKey:     cfg.Server.APIKey,
		Evaluator:  evaluator,
		Registry:   reg,
		AuditLog:   auditLog,
		Attendance: attendanceSvc,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}

// getONNXLibPath returns the ONNX Runtime shared library path.
func getONNXLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "linux":
		return "libonnxruntime.so"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "onnxruntime.dll"
	}
}
