package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/invopilot/docflow/internal/bootstrap"
	"github.com/invopilot/docflow/internal/config"
	"github.com/invopilot/docflow/internal/observability/logging"
	"github.com/invopilot/docflow/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("docflow-worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("docflow-worker")
	go func() {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", workerMetrics.Handler())
		if err := http.ListenAndServe(":"+cfg.WorkerMetricsPort, mux); err != nil && err != http.ErrServerClosed {
			slog.Error("worker metrics server error", "error", err)
		}
	}()

	extractTimeout := time.Duration(cfg.ExtractTimeoutSeconds) * time.Second

	slog.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeExtractionRequested(ctx, func(handlerCtx context.Context, documentID string) error {
		runCtx, cancel := context.WithTimeout(handlerCtx, extractTimeout)
		defer cancel()

		if doc, err := app.Ledger.GetDocument(runCtx, documentID); err == nil {
			workerMetrics.ObserveQueueLag(time.Since(doc.CreatedAt))
		}

		workerMetrics.StartExtraction()
		start := time.Now()
		runErr := app.ExtractUC.BeginExtraction(runCtx, documentID)

		outcome := "committed"
		if runErr != nil {
			outcome = "error"
		}
		workerMetrics.FinishExtraction("docflow-worker", outcome, time.Since(start))
		return runErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
