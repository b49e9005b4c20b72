package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"contentpilot/internal/gateway/config"
	"contentpilot/internal/gateway/handler"
	"contentpilot/internal/gateway/server"
	"contentpilot/internal/llm"
	llmclient "contentpilot/internal/llmClient"
	"contentpilot/internal/logging"
	"contentpilot/internal/pipeline"
	"contentpilot/internal/telemetry"
)

type App struct {
	server    *server.Server
	handler   http.Handler
	completer *llm.Completer
	sinks     *debugSinks
	logger    *slog.Logger
}

// New loads configuration from the environment and args and wires the app.
func New(ctx context.Context, args []string) (*App, error) {
	cfg, err := config.Load(args)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return Build(ctx, cfg, logging.New(cfg.LogLevel, cfg.LogFormat))
}

func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	sinks, err := initSinks(cfg.Debug, logging.Component(logger, "telemetry"))
	if err != nil {
		return nil, err
	}
	p, completer, err := NewPipeline(ctx, cfg, sinks.sink, logger)
	if err != nil {
		_ = sinks.close(ctx)
		return nil, err
	}
	rec := telemetry.NewRecorder(sinks.sink, telemetry.RecorderOptions{CostPer1KTokens: cfg.CostPer1KTokens, Logger: logger})

	briefsHandler := handler.NewBriefsHandler(p, logger)
	debugHandler := handler.NewDebugHandler(rec, sinks.reader, sinks.hub, logger)

	mux := server.NewMux(briefsHandler, debugHandler, cfg.CORSOrigin, logging.Component(logger, "http"))
	logger.Info("app configured",
		"env", cfg.Env,
		"backend", completer.Name(),
		"debug_sinks", cfg.Debug.Sinks,
		"validation_retries", cfg.Pipeline.ValidationRetries,
		"brief_defect_policy", cfg.Pipeline.Parse.Defects,
	)
	return &App{
		server:    server.New(cfg.Port, mux, logger),
		handler:   mux,
		completer: completer,
		sinks:     sinks,
		logger:    logger,
	}, nil
}

// NewPipeline builds the configured backend and the pipeline around it.
// Every backend call and state transition is written to sink.
func NewPipeline(ctx context.Context, cfg *config.Config, sink telemetry.Sink, logger *slog.Logger) (*pipeline.Pipeline, *llm.Completer, error) {
	backend, err := llmclient.DefaultCatalog().New(ctx, cfg.LLM)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create llm backend: %w", err)
	}
	rec := telemetry.NewRecorder(sink, telemetry.RecorderOptions{CostPer1KTokens: cfg.CostPer1KTokens, Logger: logger})
	completer := llm.NewCompleter(backend, logging.Component(logger, "llm"), rec)
	return pipeline.New(completer, rec, logger, cfg.Pipeline), completer, nil
}

func (a *App) Handler() http.Handler { return a.handler }

func (a *App) Start() error {
	return a.server.Start()
}

// Shutdown stops accepting requests, then flushes telemetry and closes the
// backend.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if cerr := a.sinks.close(ctx); cerr != nil {
		a.logger.Warn("telemetry close failed", "error", cerr)
	}
	if cerr := a.completer.Close(); cerr != nil {
		a.logger.Warn("backend close failed", "error", cerr)
	}
	return err
}
