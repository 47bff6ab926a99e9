package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"contractparser/internal/config"
	"contractparser/internal/extraction"
	"contractparser/internal/llm"
	"contractparser/internal/mcpserver"
	"contractparser/internal/port"
	"contractparser/internal/repository/memory"
	"contractparser/internal/repository/postgres"
	"contractparser/internal/service"
	"contractparser/internal/storage"
	"contractparser/internal/textextract"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "contract-mcp",
	Short: "Serve contract billing tools over the Model Context Protocol (stdio)",
	Long: `Runs an MCP server on stdin/stdout exposing tools to upload contracts,
review extracted billing terms, correct fields and export records.

With --backend memory, contracts live only for the lifetime of the process.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.Flags().String("backend", "postgres", "contract store: postgres or memory")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// zap writes to stderr, leaving stdout to the protocol.
	if err := config.InitLogger(cfg.Log); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = zap.L().Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, _ := cmd.Flags().GetString("backend")
	var (
		contracts port.ContractRepository
		audit     port.AuditRepository
	)
	switch backend {
	case "postgres":
		db, err := postgres.NewDB(&cfg.DB)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()
		contracts, audit = postgres.NewContractRepo(db), postgres.NewAuditRepo(db)
	case "memory":
		store := memory.NewStore()
		contracts, audit = store.Contracts(), store.Audit()
	default:
		return fmt.Errorf("unknown backend %q: use postgres or memory", backend)
	}

	objects, err := storage.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	providers, err := llm.NewChain(&cfg.LLM)
	if err != nil {
		return err
	}

	var worker *service.ExtractionWorker
	svc := service.NewContractService(
		contracts,
		service.NewAuditService(audit),
		objects,
		textextract.NewFromConfig(cfg.TextExtract),
		extraction.NewOrchestrator(providers, extraction.TruncationPolicy{
			MaxChars:  cfg.Extraction.MaxChars,
			HeadChars: cfg.Extraction.HeadChars,
			TailChars: cfg.Extraction.TailChars,
		}),
		service.ContractServiceConfig{
			Bucket:           cfg.Bucket(),
			MaxFileSizeBytes: cfg.Upload.MaxFileSizeBytes(),
			MinTextChars:     cfg.Upload.MinTextChars,
			PresignExpiry:    cfg.S3.PresignExpiry,
		},
		service.WithUploadNotifier(func() { worker.Notify() }),
	)
	worker = service.NewExtractionWorker(contracts, svc, service.ExtractionWorkerConfig{
		PollInterval: time.Duration(cfg.Queue.PollIntervalSecs) * time.Second,
		Concurrency:  cfg.Queue.Concurrency,
		JobTimeout:   time.Duration(cfg.Queue.JobTimeoutSecs) * time.Second,
	})

	workerCtx, cancelWorker := context.WithCancel(ctx)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Start(workerCtx)
	}()
	defer func() {
		cancelWorker()
		<-workerDone
	}()

	s := mcpserver.NewServer(mcpserver.ServerConfig{Contracts: svc, Version: version})
	zap.L().Info("contract-mcp: serving on stdio", zap.String("backend", backend))
	return server.ServeStdio(s)
}
