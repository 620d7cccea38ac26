package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/study-assistant/internal/config"
	"github.com/kirillkom/study-assistant/internal/core/ports"
	"github.com/kirillkom/study-assistant/internal/core/usecase"
	"github.com/kirillkom/study-assistant/internal/infrastructure/extractor"
	"github.com/kirillkom/study-assistant/internal/infrastructure/extractor/pdftext"
	"github.com/kirillkom/study-assistant/internal/infrastructure/extractor/plaintext"
	natsqueue "github.com/kirillkom/study-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/study-assistant/internal/infrastructure/render/pdfdoc"
	"github.com/kirillkom/study-assistant/internal/infrastructure/render/worddoc"
	"github.com/kirillkom/study-assistant/internal/infrastructure/render/xlsx"
	"github.com/kirillkom/study-assistant/internal/infrastructure/repository/sqlstore"
	"github.com/kirillkom/study-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/study-assistant/internal/infrastructure/storage/localfs"
)

// Options carries the process-specific hooks; the zero value is valid.
type Options struct {
	Logger          *slog.Logger
	StageObserver   usecase.StageObserver
	OutcomeObserver usecase.OutcomeObserver
	OnQueueLag      func(time.Duration)
}

type App struct {
	Config config.Config

	// Queue is nil when NATS_URL is not set.
	Queue   ports.JobQueue
	Repo    ports.GuideRepository
	Storage ports.ObjectStorage

	ContentUC *usecase.ContentUseCase
	ProcessUC *usecase.ProcessGuideUseCase
	IngestUC  *usecase.IngestGuideUseCase
	GuidesUC  *usecase.GuideQueryUseCase
	ReviewUC  *usecase.ReviewUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sqlstore.OpenDB(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	repo := sqlstore.NewGuideRepository(db, cfg.DatabaseDriver)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := newExecutor(cfg, resilience.CompletionPolicy(), logger)
	completer, err := newCompleter(ctx, cfg, "", executor)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init completion provider: %w", err)
	}
	reviewCompleter := completer
	if cfg.ReviewModel != "" {
		reviewCompleter, err = newCompleter(ctx, cfg, cfg.ReviewModel, executor)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init review completion provider: %w", err)
		}
	}
	synthesizer, err := newSynthesizer(cfg, newExecutor(cfg, resilience.SpeechPolicy(), logger))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init speech synthesizer: %w", err)
	}

	var queue *natsqueue.Queue
	if cfg.NATSURL != "" {
		queue, err = natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{
			ResilienceExecutor: executor,
			Logger:             logger,
			JobTimeout:         cfg.WorkerJobTimeout,
			OnQueueLag:         opts.OnQueueLag,
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init message queue: %w", err)
		}
	}

	dispatcher := extractor.NewDispatcher(pdftext.NewExtractor(), plaintext.NewExtractor())
	contentUC := usecase.NewContentUseCase(dispatcher, completer, usecase.ContentOptions{
		MaxInputChars:  cfg.MaxInputChars,
		FlashcardCount: cfg.FlashcardCount,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	renderers := []ports.DocumentRenderer{
		pdfdoc.New(),
		worddoc.New(""),
		xlsx.New(),
	}
	processUC := usecase.NewProcessGuideUseCase(repo, storage, contentUC, renderers, synthesizer,
		usecase.WithLogger(logger),
		usecase.WithStageObserver(opts.StageObserver),
		usecase.WithOutcomeObserver(opts.OutcomeObserver),
	)

	app := &App{
		Config:    cfg,
		Repo:      repo,
		Storage:   storage,
		ContentUC: contentUC,
		ProcessUC: processUC,
		GuidesUC:  usecase.NewGuideQueryUseCase(repo, storage),
		ReviewUC:  usecase.NewReviewUseCase(reviewCompleter, cfg.MaxInputChars),
		closeFn: func() {
			if queue != nil {
				queue.Close()
			}
			_ = db.Close()
		},
	}
	// A typed nil must not leak into the interface.
	if queue != nil {
		app.Queue = queue
	}
	app.IngestUC = usecase.NewIngestGuideUseCase(repo, storage, app.Queue, cfg.MaxUploadBytes)
	return app, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
