package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/streamsaviour-go/api"
	"github.com/yourusername/streamsaviour-go/api/handlers"
	"github.com/yourusername/streamsaviour-go/internal/app"
	"github.com/yourusername/streamsaviour-go/internal/domain"
	"github.com/yourusername/streamsaviour-go/internal/infrastructure"
	"github.com/yourusername/streamsaviour-go/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

var (
	serverMode = flag.Bool("server-mode", false, "Internal flag: run in server mode (called by daemon)")
	foreground = flag.Bool("foreground", false, "Run in the foreground instead of detaching")
	configPath = flag.String("config", "", "Path to config file")
)

func main() {
	flag.Parse()

	if !*serverMode && !*foreground {
		startAsDaemon()
		return
	}

	if err := runServer(); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

// startAsDaemon re-executes the binary in server mode, detached from the
// terminal
func startAsDaemon() {
	execPath, err := os.Executable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get executable path: %v\n", err)
		os.Exit(1)
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "/"
	}

	args := []string{"-server-mode"}
	if *configPath != "" {
		args = append(args, "-config", *configPath)
	}
	cmd := exec.Command(execPath, args...)
	cmd.Dir = cwd
	cmd.Env = os.Environ()
	detach(cmd)

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open %s: %v\n", os.DevNull, err)
		os.Exit(1)
	}
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start daemon: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Server started as daemon (PID: %d)\n", cmd.Process.Pid)
	os.Exit(0)
}

func runServer() error {
	config, err := app.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	// Category logs: session lifecycle events and application errors
	multiLog, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
		Level:   config.Logging.Level,
		LogsDir: config.Logging.LogsDir,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize category logs: %w", err)
	}
	defer multiLog.Close()

	log.Info("Starting StreamSaviour server",
		zap.String("version", handlers.Version),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("yt_dlp", config.Extractor.Binary),
		zap.String("export_target", config.Export.Target))

	repo, err := infrastructure.NewSQLiteHistoryRepository(config.History.DatabasePath, config.History.Namespace)
	if err != nil {
		return fmt.Errorf("failed to initialize history repository: %w", err)
	}
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exporter, err := newExporter(ctx, &config.Export, log)
	if err != nil {
		return fmt.Errorf("failed to initialize exporter: %w", err)
	}

	extractor := infrastructure.NewYTDLPExtractor(&config.Extractor, multiLog, log.Named("extractor"))
	if version, err := extractor.Version(ctx); err != nil {
		log.Warn("yt-dlp not available, analysis and downloads will fail", zap.Error(err))
	} else {
		log.Info("Found yt-dlp", zap.String("version", version))
	}

	blobs := infrastructure.NewMemoryBlobStore()
	store := app.NewHistoryStore(repo, blobs, app.HistoryStoreOptions{
		MaxFailedRetained: config.Session.MaxFailedRetained,
	}, log.Named("history"))

	notifier := infrastructure.NewNotificationService(&config.Notification, log)
	controller := app.NewSessionController(store, extractor, blobs, notifier,
		&config.Session, multiLog, log.Named("sessions"))
	library := app.NewLibraryExporter(store, blobs, exporter, log.Named("library"))

	router := api.SetupRouter(api.Dependencies{
		Controller:     controller,
		Store:          store,
		Library:        library,
		Extractor:      extractor,
		Database:       repo,
		AnalyzeTimeout: config.Extractor.AnalyzeTimeout,
		MultiLogger:    multiLog,
		Logger:         log,
	})

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("Received shutdown signal")
	case err := <-serverErr:
		controller.Shutdown()
		return fmt.Errorf("failed to start server: %w", err)
	}

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Abort running sessions before draining HTTP connections
	controller.Shutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if last, err := repo.LastSaved(); err == nil && !last.IsZero() {
		log.Info("History last saved", zap.Time("at", last))
	}
	if count, size := blobs.Stats(); count > 0 {
		log.Info("Discarding in-memory payloads", zap.Int("count", count), zap.Int64("bytes", size))
	}

	log.Info("Server exited")
	return nil
}

// newExporter builds the payload exporter for the configured target
func newExporter(ctx context.Context, config *domain.ExportConfig, log *zap.Logger) (domain.PayloadExporter, error) {
	switch config.Target {
	case "s3":
		exporter, err := infrastructure.NewS3Exporter(ctx, &config.S3, log.Named("s3"))
		if err != nil {
			return nil, err
		}
		return exporter, nil
	default:
		return infrastructure.NewLocalExporter(config.Dir, log.Named("export")), nil
	}
}
