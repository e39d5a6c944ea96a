// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/souschef/internal/api"
	"github.com/starford/souschef/internal/assistant"
	"github.com/starford/souschef/internal/cooking"
	"github.com/starford/souschef/internal/events"
	"github.com/starford/souschef/internal/index"
	"github.com/starford/souschef/internal/kitchen"
	"github.com/starford/souschef/internal/mcpserver"
	"github.com/starford/souschef/internal/recipe"
	"github.com/starford/souschef/internal/retrieval"
	"github.com/starford/souschef/internal/sse"
	"github.com/starford/souschef/internal/storage"
)

// runtime is the wired component graph shared by every entry point.
type runtime struct {
	cfg       *Config
	logger    *slog.Logger
	db        *index.DB
	manager   *index.Manager
	broker    *sse.Broker
	assistant *assistant.Assistant
}

func (rt *runtime) Close() {
	if rt.broker != nil {
		rt.broker.Close()
	}
	rt.manager.Wait()
	if err := rt.db.Close(); err != nil {
		rt.logger.Warn("close index db", slog.String("error", err.Error()))
	}
}

func setup(opts []Option) (*application, *slog.Logger, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return app, logger, nil
}

// build wires storage, the index, the session and the kitchen tools. Display
// events go to sink; with a nil sink they are published on a new SSE broker.
func build(cfg *Config, logger *slog.Logger, sink events.Sink) (*runtime, error) {
	// Ensure the documents directory exists.
	if err := os.MkdirAll(cfg.Documents.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create documents dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Documents.Path, cfg.Documents.Includes...)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.Index.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	rt := &runtime{cfg: cfg, logger: logger, db: db}
	if sink == nil {
		rt.broker = sse.NewBroker(cfg.App.HTTP.Heartbeat)
		sink = events.BrokerSink(rt.broker)
	}

	embedder := cfg.NewEmbedder()
	rt.manager = index.NewManager(store, db, embedder, logger, index.Options{
		Segmenter: cfg.Index.Segmenter(),
		Workers:   cfg.Index.Workers,
	})
	engine := retrieval.New(rt.manager, embedder)
	display := events.NewDisplay(sink, logger)
	session := cooking.NewSession(engine, recipe.NewExtractor(cfg.NewExtractor(), logger), display, logger)

	rt.assistant = assistant.New(assistant.Deps{
		Index:    rt.manager,
		Engine:   engine,
		Session:  session,
		Timers:   kitchen.NewTimers(display),
		Shopping: kitchen.NewShoppingList(display),
		Emitter:  display,
		Replier:  display,
		Logger:   logger,
		TopK:     cfg.Index.TopK,
	})
	return rt, nil
}

// restore loads the saved index and, when the documents changed since,
// rebuilds in the background.
func (rt *runtime) restore(ctx context.Context) {
	st, err := rt.manager.Load(ctx)
	if err != nil {
		rt.logger.Warn("index restore failed", slog.String("error", err.Error()))
	}
	rt.logger.Info("index restored", slog.Bool("available", st.Available), slog.String("message", st.Message))
	index.Reconcile(ctx, rt.manager, rt.logger, func(st index.Status, err error) {
		if err != nil {
			rt.logger.Warn("startup rebuild failed", slog.String("error", err.Error()))
		}
		rt.assistant.CookbookReloaded(st, err)
	})
}

// Run starts the HTTP server and the document watcher.
func Run(ctx context.Context, opts ...Option) error {
	app, logger, err := setup(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("documents_path", cfg.Documents.Path),
		slog.String("index_path", cfg.Index.Path),
		slog.String("embedding_provider", cfg.Embedding.Provider),
		slog.String("log_level", cfg.App.LogLevel.String()))

	rt, err := build(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	mcpSrv := mcpserver.New(rt.assistant, logger)
	apiRouter := api.NewRouter(rt.assistant, api.RouterOptions{
		AuthEnabled:    cfg.Auth.AuthEnabled(),
		Token:          cfg.Auth.Token,
		Events:         rt.broker,
		ReloadOnUpload: !cfg.Documents.Watch,
	})

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", api.Ready(rt.assistant))

	r.Mount("/api", apiRouter)
	r.With(api.AuthMiddleware(cfg.Auth.AuthEnabled(), cfg.Auth.Token)).Handle("/mcp", mcpSrv.HTTPHandler())

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	rt.restore(gCtx)

	if cfg.Documents.Watch {
		g.Go(func() error {
			return index.Watch(gCtx, rt.manager, cfg.Documents.Debounce, logger, rt.assistant.CookbookReloaded)
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// SSE streams never end on their own; closing the broker releases them.
		rt.broker.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown ends the errgroup so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the assistant tools over stdio. Display events have no
// subscriber in this mode and are logged at debug level.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, logger, err := setup(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}

	sink := events.SinkFunc(func(e events.Event) {
		logger.Debug("display event", slog.String("event", e.Name), slog.Any("payload", e.Payload))
	})
	rt, err := build(app.config, logger, sink)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.restore(ctx)
	logger.Info("MCP server starting on stdio")
	return mcpserver.New(rt.assistant, logger).ServeStdio()
}

// Index actions for RunIndex.
const (
	IndexBuild  = "build"
	IndexClear  = "clear"
	IndexStatus = "status"
)

// RunIndex performs one index maintenance action and returns the resulting
// status.
func RunIndex(ctx context.Context, action string, opts ...Option) (index.Status, error) {
	app, logger, err := setup(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return index.Status{}, err
	}
	rt, err := build(app.config, logger, events.SinkFunc(func(events.Event) {}))
	if err != nil {
		return index.Status{}, err
	}
	defer rt.Close()

	if _, err := rt.manager.Load(ctx); err != nil {
		return index.Status{}, err
	}
	switch action {
	case IndexBuild:
		return rt.manager.Rebuild(ctx)
	case IndexClear:
		return rt.manager.Clear(ctx)
	case IndexStatus:
		return rt.manager.Status(), nil
	default:
		return index.Status{}, fmt.Errorf("unknown index action %q", action)
	}
}
