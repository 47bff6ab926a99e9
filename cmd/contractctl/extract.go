package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"contractparser/internal/domain"
	"contractparser/internal/extraction"
	"contractparser/internal/llm"
	"contractparser/internal/repository/memory"
	"contractparser/internal/service"
	"contractparser/internal/storage/local"
	"contractparser/internal/textextract"
)

var extractCmd = &cobra.Command{
	Use:   "extract FILE...",
	Short: "Extract billing terms from contract files",
	Long: `Extract billing terms from one or more PDF or TXT contracts using the
configured LLM provider chain. Each record is written next to its source
as <name>.billing.json, into --out-dir when given, or to stdout as one
JSON line per file with --out-dir -.

Examples:
  contractctl extract msa.pdf
  contractctl extract --concurrency 4 --out-dir records contracts/*.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

var textCmd = &cobra.Command{
	Use:   "text FILE",
	Short: "Print the text extracted from a contract file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrap(err, "read contract")
		}
		text, err := textextract.NewFromConfig(cfg.TextExtract).ExtractText(cmd.Context(), args[0], data)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
		return err
	},
}

func init() {
	f := extractCmd.Flags()
	f.Int("concurrency", 2, "number of contracts processed at once")
	f.String("out-dir", "", "directory for billing records, or - for stdout (default: next to each source file)")

	rootCmd.AddCommand(extractCmd, textCmd)
}

// pipeline runs uploads and extractions in-process on an in-memory store.
type pipeline struct {
	contracts service.ContractService
}

func newPipeline(text *textextract.Extractor, billing *extraction.Orchestrator) *pipeline {
	store := memory.NewStore()
	svc := service.NewContractService(
		store.Contracts(),
		service.NewAuditService(store.Audit()),
		local.NewFromFs(afero.NewMemMapFs()),
		text,
		billing,
		service.ContractServiceConfig{
			Bucket:           "local",
			MaxFileSizeBytes: cfg.Upload.MaxFileSizeBytes(),
			MinTextChars:     cfg.Upload.MinTextChars,
		},
	)
	return &pipeline{contracts: svc}
}

// run uploads and processes one file and returns the rendered JSON export.
func (p *pipeline) run(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "read contract")
	}
	c, err := p.contracts.Upload(ctx, service.ContractUploadInput{Filename: filepath.Base(path), Data: data})
	if err != nil {
		return nil, err
	}
	p.contracts.ProcessContract(ctx, c)

	done, err := p.contracts.GetByID(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if done.Status != domain.ContractStatusCompleted {
		msg := "extraction did not complete"
		if done.ErrorMessage != nil {
			msg = *done.ErrorMessage
		}
		return nil, eris.New(msg)
	}
	return done.BillingConfig.MarshalJSON()
}

func recordPath(src, outDir string) string {
	name := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)) + ".billing.json"
	if outDir == "" {
		return filepath.Join(filepath.Dir(src), name)
	}
	return filepath.Join(outDir, name)
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := zap.L().With(zap.String("command", "extract"))

	concurrency, _ := cmd.Flags().GetInt("concurrency")
	outDir, _ := cmd.Flags().GetString("out-dir")
	toStdout := outDir == "-"
	if outDir != "" && !toStdout {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return eris.Wrap(err, "create output directory")
		}
	}

	providers, err := llm.NewChain(&cfg.LLM)
	if err != nil {
		return err
	}
	p := newPipeline(
		textextract.NewFromConfig(cfg.TextExtract),
		extraction.NewOrchestrator(providers, extraction.TruncationPolicy{
			MaxChars:  cfg.Extraction.MaxChars,
			HeadChars: cfg.Extraction.HeadChars,
			TailChars: cfg.Extraction.TailChars,
		}),
	)

	var (
		mu     sync.Mutex
		failed int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for _, path := range args {
		g.Go(func() error {
			body, err := p.run(gctx, path)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Error("extraction failed", zap.String("file", path), zap.Error(err))
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			if toStdout {
				mu.Lock()
				defer mu.Unlock()
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", path, body)
				return err
			}
			out := recordPath(path, outDir)
			if err := os.WriteFile(out, body, 0o644); err != nil {
				return eris.Wrapf(err, "write %s", out)
			}
			log.Info("billing record written", zap.String("file", path), zap.String("record", out))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d contracts failed", failed, len(args))
	}
	return nil
}
