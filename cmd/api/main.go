package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	httpadapter "github.com/kirillkom/study-assistant/internal/adapters/http"
	"github.com/kirillkom/study-assistant/internal/bootstrap"
	"github.com/kirillkom/study-assistant/internal/config"
	"github.com/kirillkom/study-assistant/internal/core/domain"
	"github.com/kirillkom/study-assistant/internal/observability/logging"
	"github.com/kirillkom/study-assistant/internal/observability/metrics"
)

const serviceName = "api"

func main() {
	cfg := config.Load()
	logger := logging.New(os.Stdout, serviceName, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Logger: logger,
		StageObserver: func(stage string, d time.Duration, err error) {
			httpMetrics.ObserveStage(serviceName, stage, d, err)
		},
		OutcomeObserver: func(_ string, status domain.GuideStatus) {
			httpMetrics.RecordGuide(serviceName, string(status))
		},
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	session := bootstrap.NewPomodoroSession(cfg, serviceName, logger, httpMetrics)
	defer session.Close()

	svc := httpadapter.Services{
		Pomodoro:  session,
		Processor: app.ProcessUC,
		Guides:    app.GuidesUC,
		Content:   app.ContentUC,
		Reviewer:  app.ReviewUC,
	}
	if app.Queue != nil {
		svc.Jobs = app.IngestUC
	}
	router := httpadapter.NewRouter(cfg, svc, httpadapter.WithMetrics(httpMetrics)).Handler()
	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("api_listening",
			"port", cfg.APIPort,
			"llm_provider", cfg.LLMProvider,
			"tts_provider", cfg.TTSProvider,
			"async_jobs", app.Queue != nil,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("api_stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("api_stopped")
}
