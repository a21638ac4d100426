package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/invopilot/docflow/internal/config"
	"github.com/invopilot/docflow/internal/core/domain"
	"github.com/invopilot/docflow/internal/core/ports"
	"github.com/invopilot/docflow/internal/core/usecase"
	"github.com/invopilot/docflow/internal/infrastructure/extractor"
	"github.com/invopilot/docflow/internal/infrastructure/extractor/pdftext"
	"github.com/invopilot/docflow/internal/infrastructure/extractor/textscan"
	"github.com/invopilot/docflow/internal/infrastructure/queue/nats"
	"github.com/invopilot/docflow/internal/infrastructure/repository/memory"
	"github.com/invopilot/docflow/internal/infrastructure/repository/postgres"
	"github.com/invopilot/docflow/internal/infrastructure/resilience"
	"github.com/invopilot/docflow/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Ledger ports.Ledger
	Queue  ports.MessageQueue

	IngestUC  *usecase.IngestUseCase
	ExtractUC *usecase.ExtractUseCase
	ReviewUC  *usecase.ReviewUseCase
	QueryUC   *usecase.QueryUseCase
	Recorder  *usecase.AuditRecorder

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	var ledger ports.Ledger
	var db *sql.DB

	switch cfg.LedgerDriver {
	case "memory":
		ledger = memory.NewLedger()
	default:
		var err error
		db, err = postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		pgLedger := postgres.NewLedger(db)
		if err := pgLedger.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		ledger = pgLedger
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	thresholds := domain.Thresholds{
		AutoApprove:         cfg.AutoApproveThreshold,
		HighPriorityBelow:   cfg.HighPriorityBelow,
		MediumPriorityBelow: cfg.MediumPriorityBelow,
	}
	triage := usecase.NewTriageEngine(thresholds)
	recorder := usecase.NewAuditRecorder(ledger)

	dispatcher := extractor.NewDispatcher(
		pdftext.NewExtractor(storage),
		textscan.NewExtractor(storage),
	)
	engine := extractor.NewResilient(dispatcher, resilience.NewExecutor(resilience.ExtractionConfig()))

	return &App{
		Config: cfg,
		Ledger: ledger,
		Queue:  queue,

		IngestUC:  usecase.NewIngestUseCase(ledger, storage, queue),
		ExtractUC: usecase.NewExtractUseCase(ledger, engine, recorder, triage),
		ReviewUC:  usecase.NewReviewUseCase(ledger, recorder, triage),
		QueryUC:   usecase.NewQueryUseCase(ledger, triage),
		Recorder:  recorder,

		closeFn: func() {
			queue.Close()
			if db != nil {
				_ = db.Close()
			}
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
