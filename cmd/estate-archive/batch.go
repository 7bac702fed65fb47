package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/estate-archive/internal/core/async"
	"github.com/joseph-ayodele/estate-archive/internal/export"
	"github.com/joseph-ayodele/estate-archive/internal/ingest"
	"github.com/joseph-ayodele/estate-archive/internal/repository"
)

func newBatchCmd(a *app) *cobra.Command {
	var (
		dir        string
		out        string
		skipHidden bool
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Process every document under a directory once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runBatch(ctx, dir, out, skipHidden)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory to process (required)")
	cmd.Flags().StringVar(&out, "out", "", "XLSX export path (defaults to <dir>/../estate-archive.xlsx)")
	cmd.Flags().BoolVar(&skipHidden, "skip-hidden", true, "skip dot files and directories")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}

func (a *app) runBatch(ctx context.Context, dir, out string, skipHidden bool) error {
	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.close(a)

	p, err := a.buildPipeline(ctx, st)
	if err != nil {
		return err
	}
	snk, closeSink, err := a.buildSink(ctx, st)
	if err != nil {
		return err
	}
	defer closeSink()

	ingestor := ingest.NewFSIngestor(st.results, nil, a.logger)
	a.logger.Info("starting ingestion", "dir", dir)
	results, dirStats, err := ingestor.IngestDirectory(ctx, dir, skipHidden)
	if err != nil {
		return fmt.Errorf("ingest directory: %w", err)
	}
	jobs := ingest.Jobs(results)
	a.logger.Info("ingestion complete", "jobs", len(jobs), "deduplicated", dirStats.Deduplicated, "failed", dirStats.Failed)

	runner := async.NewBatchRunner(p, a.logger,
		async.WithWorkers(a.cfg.Pipeline.Workers),
		async.WithQueueSize(a.cfg.Pipeline.QueueSize),
		async.WithProcessTimeout(a.cfg.Pipeline.ProcessTimeout),
		async.WithLoader(a.buildLoader()),
		async.WithSink(snk),
	)
	stats, err := runner.RunAll(ctx, jobs)
	if err != nil {
		a.logger.Error("batch interrupted", "batch_id", stats.BatchID, "error", err)
	}

	if out == "" {
		out = filepath.Join(filepath.Dir(filepath.Clean(dir)), "estate-archive.xlsx")
	}
	xlsx, xerr := export.NewService(st.results, st.reviews, a.logger).
		ExportXLSX(ctx, repository.ListFilter{BatchID: stats.BatchID})
	if xerr != nil {
		return fmt.Errorf("export: %w", xerr)
	}
	if xerr := os.WriteFile(out, xlsx, 0o644); xerr != nil {
		return fmt.Errorf("write export: %w", xerr)
	}

	summary, _ := json.MarshalIndent(struct {
		Ingest ingest.DirStats `json:"ingest"`
		Batch  async.Stats     `json:"batch"`
		Export string          `json:"export"`
	}{dirStats, stats, out}, "", "  ")
	fmt.Fprintln(os.Stderr, string(summary))
	return err
}
