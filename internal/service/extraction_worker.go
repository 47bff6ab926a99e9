package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"contractparser/internal/port"
)

// ExtractionWorkerConfig holds settings for the extraction worker.
type ExtractionWorkerConfig struct {
	PollInterval time.Duration
	Concurrency  int
	JobTimeout   time.Duration
}

// ExtractionWorker claims pending contracts and runs extraction on them.
type ExtractionWorker struct {
	repo    port.ContractRepository
	service ContractService
	cfg     ExtractionWorkerConfig
	sem     *semaphore.Weighted
	wake    chan struct{}
	wg      sync.WaitGroup
}

// NewExtractionWorker creates a new ExtractionWorker.
func NewExtractionWorker(repo port.ContractRepository, service ContractService, cfg ExtractionWorkerConfig) *ExtractionWorker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}
	return &ExtractionWorker{
		repo:    repo,
		service: service,
		cfg:     cfg,
		sem:     semaphore.NewWeighted(int64(cfg.Concurrency)),
		wake:    make(chan struct{}, 1),
	}
}

// Notify asks the worker to poll now instead of waiting for the next tick.
// It never blocks.
func (w *ExtractionWorker) Notify() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Start runs the polling loop until ctx is canceled. It blocks until all
// in-flight extractions have finished.
func (w *ExtractionWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	zap.L().Info("extractionWorker: started",
		zap.Duration("poll", w.cfg.PollInterval),
		zap.Int("concurrency", w.cfg.Concurrency))

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("extractionWorker: shutting down, waiting for in-flight extractions")
			w.wg.Wait()
			zap.L().Info("extractionWorker: shutdown complete")
			return
		case <-ticker.C:
			w.poll(ctx)
		case <-w.wake:
			w.poll(ctx)
		}
	}
}

// poll claims as many contracts as there are free slots and dispatches them.
func (w *ExtractionWorker) poll(ctx context.Context) {
	available := 0
	for available < w.cfg.Concurrency && w.sem.TryAcquire(1) {
		available++
	}
	if available == 0 {
		return
	}

	contracts, err := w.repo.ClaimPending(ctx, available)
	if err != nil {
		w.sem.Release(int64(available))
		if ctx.Err() == nil {
			zap.L().Error("extractionWorker: ClaimPending error", zap.Error(err))
		}
		return
	}
	if unused := available - len(contracts); unused > 0 {
		w.sem.Release(int64(unused))
	}

	for i := range contracts {
		c := contracts[i]
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			defer w.sem.Release(1)

			// A fresh context lets in-flight extractions finish during shutdown.
			jobCtx, cancel := context.WithTimeout(context.Background(), w.cfg.JobTimeout)
			defer cancel()

			zap.L().Info("extractionWorker: dispatching contract", zap.String("contract_id", c.ID.String()))
			w.service.ProcessContract(jobCtx, &c)
		}()
	}
}

// Wait blocks until all dispatched extractions have finished.
func (w *ExtractionWorker) Wait() {
	w.wg.Wait()
}
