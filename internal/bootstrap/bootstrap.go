package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/factusalud/rips-engine/internal/config"
	"github.com/factusalud/rips-engine/internal/core/extract"
	"github.com/factusalud/rips-engine/internal/core/ports"
	"github.com/factusalud/rips-engine/internal/core/rips"
	"github.com/factusalud/rips-engine/internal/core/usecase"
	"github.com/factusalud/rips-engine/internal/infrastructure/export"
	"github.com/factusalud/rips-engine/internal/infrastructure/export/control"
	"github.com/factusalud/rips-engine/internal/infrastructure/export/flatfile"
	"github.com/factusalud/rips-engine/internal/infrastructure/nlp"
	"github.com/factusalud/rips-engine/internal/infrastructure/pdftext"
	"github.com/factusalud/rips-engine/internal/infrastructure/queue/nats"
	"github.com/factusalud/rips-engine/internal/infrastructure/repository/postgres"
	"github.com/factusalud/rips-engine/internal/infrastructure/resilience"
	"github.com/factusalud/rips-engine/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Repo      ports.RunRepository
	IngestUC  ports.RunIngestor
	Runs      ports.RunReader
	ProcessUC ports.RunProcessor
	Generator ports.Generator

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewRunRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	policy := resilience.DefaultPolicy()
	policy.MaxAttempts = cfg.ResilienceMaxAttempts
	policy.BreakerEnabled = cfg.ResilienceBreakerEnabled

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		Executor: resilience.New("nats", policy, logger),
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	codeMaps, err := rips.LoadCodeMaps(cfg.CodeMapsPath)
	if err != nil {
		return nil, fmt.Errorf("load code maps: %w", err)
	}

	var annotator extract.Annotator
	if cfg.AnnotatorEnabled {
		annotator = nlp.NewWithOptions(cfg.AnnotatorURL, nlp.Options{
			Timeout:  time.Duration(cfg.AnnotatorTimeoutSeconds) * time.Second,
			Executor: resilience.New("annotator", policy, logger),
		})
	}
	clinical := extract.NewClinicalEntityExtractor(annotator, logger)

	textSource := pdftext.NewExtractor()
	pipeline := usecase.NewGenerationPipeline(textSource, clinical, cfg.ProviderCode, codeMaps)

	exporter := export.NewMulti(
		flatfile.NewWriter(cfg.OutputPath),
		control.NewWriter(cfg.OutputPath, logger),
	)

	ingestUC := usecase.NewIngestRunUseCase(repo, storage, queue)
	processUC := usecase.NewProcessRunUseCase(repo, storage, pipeline, exporter)
	generateUC := usecase.NewGenerateUseCase(pipeline)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,

		IngestUC:  ingestUC,
		Runs:      ingestUC,
		ProcessUC: processUC,
		Generator: generateUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
