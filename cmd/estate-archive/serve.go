package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/estate-archive/internal/export"
	"github.com/joseph-ayodele/estate-archive/internal/ingest"
	"github.com/joseph-ayodele/estate-archive/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the gRPC and HTTP APIs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runServe(ctx)
		},
	}
}

func (a *app) runServe(ctx context.Context) error {
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

	svc := server.NewService(server.Deps{
		Pipeline: p,
		Sink:     snk,
		Loader:   a.buildLoader(),
		Ingestor: ingest.NewFSIngestor(nil, nil, a.logger),
		Results:  st.results,
		Reviews:  st.reviews,
		Exporter: export.NewService(st.results, st.reviews, a.logger),
	}, a.logger)

	lis, err := net.Listen("tcp", a.cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.Server.GRPCAddr, err)
	}
	grpcServer, healthServer := server.NewGRPCServer(svc, a.logger)

	if a.cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	httpServer := &http.Server{
		Addr:              a.cfg.Server.HTTPAddr,
		Handler:           server.NewRouter(svc, a.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		a.logger.Info("estate-archive gRPC listening", "addr", a.cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
		}
	}()
	go func() {
		a.logger.Info("estate-archive HTTP listening", "addr", a.cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err = <-errCh:
		a.logger.Error("server failed", "error", err)
	}

	a.logger.Info("shutting down")
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if serr := httpServer.Shutdown(shutdownCtx); serr != nil {
		a.logger.Warn("http shutdown", "error", serr)
	}
	grpcServer.GracefulStop()
	return err
}
