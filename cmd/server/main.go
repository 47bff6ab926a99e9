package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"contractparser/internal/config"
	"contractparser/internal/extraction"
	"contractparser/internal/handler"
	"contractparser/internal/llm"
	"contractparser/internal/repository/postgres"
	"contractparser/internal/router"
	"contractparser/internal/service"
	"contractparser/internal/storage"
	"contractparser/internal/textextract"
)

// @title Contract Parser API
// @version 1.0
// @description Extracts billing terms from uploaded contracts and exposes them for review, correction and export.
// @BasePath /api/v1
func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.InitLogger(cfg.Log); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = zap.L().Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	contractRepo := postgres.NewContractRepo(db)
	auditRepo := postgres.NewAuditRepo(db)

	// Initialize storage
	store, err := storage.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Initialize extraction pipeline
	providers, err := llm.NewChain(&cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to initialize llm providers: %w", err)
	}
	orchestrator := extraction.NewOrchestrator(providers, extraction.TruncationPolicy{
		MaxChars:  cfg.Extraction.MaxChars,
		HeadChars: cfg.Extraction.HeadChars,
		TailChars: cfg.Extraction.TailChars,
	})
	textExtractor := textextract.NewFromConfig(cfg.TextExtract)

	// Initialize services
	auditSvc := service.NewAuditService(auditRepo)
	var worker *service.ExtractionWorker
	contractSvc := service.NewContractService(
		contractRepo, auditSvc, store, textExtractor, orchestrator,
		service.ContractServiceConfig{
			Bucket:           cfg.Bucket(),
			MaxFileSizeBytes: cfg.Upload.MaxFileSizeBytes(),
			MinTextChars:     cfg.Upload.MinTextChars,
			PresignExpiry:    cfg.S3.PresignExpiry,
		},
		service.WithUploadNotifier(func() { worker.Notify() }),
	)
	worker = service.NewExtractionWorker(contractRepo, contractSvc, service.ExtractionWorkerConfig{
		PollInterval: time.Duration(cfg.Queue.PollIntervalSecs) * time.Second,
		Concurrency:  cfg.Queue.Concurrency,
		JobTimeout:   time.Duration(cfg.Queue.JobTimeoutSecs) * time.Second,
	})

	// Initialize handlers
	contractH := handler.NewContractHandler(contractSvc, cfg.Upload.MaxFileSizeBytes())
	healthH := handler.NewHealthHandler(db)

	// Setup router
	r := router.Setup(contractH, healthH, cfg.CORS.AllowedOrigins)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Start(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		zap.L().Info("server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			stop()
			<-workerDone
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	zap.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("server shutdown failed", zap.Error(err))
	}
	<-workerDone

	return nil
}
