package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/study-assistant/internal/bootstrap"
	"github.com/kirillkom/study-assistant/internal/config"
	"github.com/kirillkom/study-assistant/internal/infrastructure/watcher"
	"github.com/kirillkom/study-assistant/internal/observability/logging"
	"github.com/kirillkom/study-assistant/internal/observability/metrics"
)

const serviceName = "worker"

func main() {
	cfg := config.Load()
	logger := logging.New(os.Stdout, serviceName, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Logger: logger,
		StageObserver: func(stage string, d time.Duration, err error) {
			workerMetrics.ObserveStage(serviceName, stage, d, err)
		},
		OnQueueLag: func(lag time.Duration) {
			workerMetrics.ObserveQueueLag(serviceName, lag)
		},
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if app.Queue == nil && cfg.InboxDir == "" {
		logger.Error("worker_has_no_sources", "hint", "set NATS_URL or INBOX_DIR")
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	if app.Queue != nil {
		group.Go(func() error {
			logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
			return app.Queue.SubscribeGuideRequested(groupCtx, func(jobCtx context.Context, guideID string) error {
				workerMetrics.StartJob()
				started := time.Now()
				err := app.ProcessUC.ProcessByID(jobCtx, guideID)
				workerMetrics.FinishJob(serviceName, time.Since(started), err)
				return err
			})
		})
	}

	if cfg.InboxDir != "" {
		inbox, err := watcher.New(cfg.InboxDir, func(fileCtx context.Context, path string) error {
			err := processInboxFile(fileCtx, app, cfg.WorkerJobTimeout, path)
			workerMetrics.RecordInboxFile(serviceName, err)
			return err
		}, watcher.Options{
			MaxConcurrent: cfg.InboxMaxConcurrent,
			Extensions:    []string{".pdf", ".txt", ".md"},
			Logger:        logger,
		})
		if err != nil {
			logger.Error("inbox_watcher_failed", "error", err)
			os.Exit(1)
		}
		group.Go(func() error {
			logger.Info("inbox_watching", "dir", cfg.InboxDir)
			return inbox.Run(groupCtx)
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker_stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("worker_stopped")
}

// processInboxFile runs the synchronous pipeline on a dropped file and
// removes it once a guide has been produced.
func processInboxFile(ctx context.Context, app *bootstrap.App, timeout time.Duration, path string) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open inbox file: %w", err)
	}
	defer file.Close()

	guide, err := app.ProcessUC.Process(ctx, filepath.Base(path), "", file)
	if err != nil {
		return err
	}
	slog.Info("inbox_file_processed", "path", path, "guide_id", guide.ID)
	return os.Remove(path)
}
