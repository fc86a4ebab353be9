package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/creative-intel/internal/api"
	"github.com/JakeFAU/creative-intel/internal/config"
	"github.com/JakeFAU/creative-intel/internal/creative"
	"github.com/JakeFAU/creative-intel/internal/dispatcher"
	queueMemory "github.com/JakeFAU/creative-intel/internal/queue/memory"
	"github.com/JakeFAU/creative-intel/internal/schedule"
	"github.com/JakeFAU/creative-intel/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func newServerCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the webhook server that triggers pipeline runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := resolveServices(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()
			if cmd.Flags().Changed("port") {
				svc.Config.Server.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, svc)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default from config, 5000)")
	return cmd
}

// serve runs the dispatcher, the optional scheduler and the HTTP server until
// ctx is cancelled, then drains them.
func serve(ctx context.Context, svc *Services) error {
	cfg := svc.Config
	logger := svc.Logger
	if err := cfg.Preflight(creative.ActionFull); err != nil {
		logger.Warn("some stages are not configured", zap.Error(err))
	}

	q := queueMemory.NewQueue(cfg.Server.QueueDepth)
	workers := make([]*worker.Worker, 0, cfg.Server.Workers)
	for i := range cfg.Server.Workers {
		workers = append(workers, worker.New(i, q, svc.Engine, worker.Config{
			RunTimeout: time.Duration(cfg.Server.RunTimeoutMinutes) * time.Minute,
		}, logger.Named("worker")))
	}
	dispatch := dispatcher.New(q, workers)

	sched, err := schedule.New(cfg.Schedule.FullPipeline, dispatch, svc.IDs, svc.Clock, logger.Named("schedule"))
	if err != nil {
		return err
	}

	apiServer := api.NewServer(svc.Engine, dispatch, svc.IDs, svc.Clock, api.Config{
		StatusTimeout: config.Seconds(cfg.Server.RequestTimeout),
	}, logger.Named("api"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		logger.Info("dispatcher started", zap.Int("workers", len(workers)))
		dispatch.Run(runCtx)
	}()
	go func() {
		defer wg.Done()
		sched.Run(runCtx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var result error
	select {
	case <-ctx.Done():
		logger.Info("shutdown initiated")
	case err := <-serveErr:
		if err != nil {
			result = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	q.Close()
	cancel()
	wg.Wait()
	logger.Info("shutdown complete")
	return result
}
