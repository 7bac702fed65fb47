package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/estate-archive/internal/core/async"
	"github.com/joseph-ayodele/estate-archive/internal/ingest"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		dirs        []string
		debounce    time.Duration
		initialScan bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Process documents as they appear under the watched directories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runWatch(ctx, ingest.WatchConfig{Roots: dirs, InitialScan: initialScan, Debounce: debounce})
		},
	}
	cmd.Flags().StringSliceVar(&dirs, "dir", nil, "directory to watch recursively (repeatable, required)")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "coalesce bursts of file events")
	cmd.Flags().BoolVar(&initialScan, "initial-scan", true, "process files already present at start")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}

func (a *app) runWatch(ctx context.Context, wc ingest.WatchConfig) error {
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
	runner := async.NewBatchRunner(p, a.logger,
		async.WithWorkers(a.cfg.Pipeline.Workers),
		async.WithQueueSize(a.cfg.Pipeline.QueueSize),
		async.WithProcessTimeout(a.cfg.Pipeline.ProcessTimeout),
		async.WithLoader(a.buildLoader()),
		async.WithSink(snk),
	)

	events, errs, err := ingest.StartWatcher(ctx, wc, a.logger)
	if err != nil {
		return err
	}
	a.logger.Info("watching for documents", "roots", wc.Roots, "batch_id", runner.BatchID())

	for {
		select {
		case path, ok := <-events:
			if !ok {
				return a.finishWatch(runner)
			}
			r, err := ingestor.IngestPath(ctx, path)
			if err != nil {
				a.logger.Warn("ingest.file_failed", "path", path, "error", err)
				continue
			}
			if r.Deduplicated {
				a.logger.Debug("ingest.skip_known", "path", path, "document_id", r.DocumentID)
				continue
			}
			for _, job := range ingest.Jobs([]ingest.IngestionResult{r}) {
				if err := runner.Enqueue(ctx, job); err != nil && !errors.Is(err, context.Canceled) {
					a.logger.Error("enqueue failed", "path", path, "error", err)
				}
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			a.logger.Warn("watcher reported error", "error", err)
		case <-ctx.Done():
			return a.finishWatch(runner)
		}
	}
}

func (a *app) finishWatch(runner *async.BatchRunner) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Pipeline.ProcessTimeout)
	defer cancel()
	stats := runner.Shutdown(ctx)
	a.logger.Info("watch stopped",
		"batch_id", stats.BatchID,
		"processed", stats.Processed,
		"review", stats.Review,
		"failed", stats.Failed,
	)
	return nil
}
