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

	"github.com/starford/masque/internal/api"
	"github.com/starford/masque/internal/collab"
	"github.com/starford/masque/internal/globalconfig"
	"github.com/starford/masque/internal/imageref"
	"github.com/starford/masque/internal/importer"
	"github.com/starford/masque/internal/kvstore"
	"github.com/starford/masque/internal/maskservice"
	"github.com/starford/masque/internal/maskstore"
	"github.com/starford/masque/internal/mcpserver"
	"github.com/starford/masque/internal/metrics"
	"github.com/starford/masque/internal/models"
	"github.com/starford/masque/internal/sidebar"
	"github.com/starford/masque/internal/sse"
	"github.com/starford/masque/internal/storage"
)

// components are the wired stores and services shared by every command.
type components struct {
	cfg     *Config
	logger  *slog.Logger
	kv      kvstore.Store
	broker  *sse.Broker
	metrics *metrics.Metrics
	masks   *maskstore.Store
	svc     *maskservice.Service
	inbox   *importer.Dir
}

func (c *components) Close() {
	c.broker.Close()
	if err := c.kv.Close(); err != nil {
		c.logger.Error("close storage failed", slog.String("error", err.Error()))
	}
}

func setup(ctx context.Context, opts ...Option) (*components, error) {
	app := &application{logOutput: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_driver", cfg.Storage.Driver),
		slog.String("storage_path", cfg.Storage.Path),
		slog.String("import_dir", cfg.Import.Dir),
		slog.String("export_dir", cfg.Export.Dir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	kv, err := openStorage(opts...)
	if err != nil {
		return nil, err
	}
	c := &components{cfg: cfg, logger: logger, kv: kv}
	ok := false
	defer func() {
		if !ok {
			if c.broker != nil {
				c.broker.Close()
			}
			_ = kv.Close()
		}
	}()

	global, err := globalconfig.Open(ctx, kv, cfg.Masks.GlobalSeed())
	if err != nil {
		return nil, err
	}
	side, err := sidebar.Open(ctx, kv)
	if err != nil {
		return nil, err
	}

	var builtin []models.Mask
	if cfg.Masks.BuiltinFile != "" {
		builtin, err = maskstore.LoadBuiltin(cfg.Masks.BuiltinFile)
		if err != nil {
			return nil, err
		}
	}

	c.broker = sse.NewBroker(cfg.Events.Throttle)
	c.metrics = metrics.New(func() int { return c.masks.Count() }, c.broker.ClientCount)

	c.masks, err = maskstore.Open(ctx, kv,
		maskstore.WithBuiltin(builtin),
		maskstore.WithHideBuiltin(cfg.Masks.HideBuiltin),
		maskstore.WithGlobalConfig(global.ModelConfig),
		maskstore.WithLogger(logger),
		maskstore.WithListener(maskListener(c.broker, c.metrics)),
	)
	if err != nil {
		return nil, err
	}

	images := imageref.New()
	svcOpts := []maskservice.Option{
		maskservice.WithImageChecker(images),
		maskservice.WithShareBase(cfg.Masks.ShareBaseURL),
		maskservice.WithSyncSupported(cfg.Masks.SyncSupported),
		maskservice.WithLogger(logger),
		maskservice.WithNotifier(func(kind string, data any) {
			switch kind {
			case maskservice.NotifySidebar:
				c.broker.Publish(sse.Event{Type: sse.TypeSidebarUpdated, Data: data})
			case maskservice.NotifyConfig:
				c.broker.Publish(sse.Event{Type: sse.TypeConfigUpdated, Data: data})
			}
		}),
	}
	if cfg.Export.Enabled() {
		exports, err := openDir(cfg.Export.Dir)
		if err != nil {
			return nil, fmt.Errorf("init export dir: %w", err)
		}
		svcOpts = append(svcOpts, maskservice.WithExporter(collab.NewFileExporter(exports)))
	}
	c.svc = maskservice.New(c.masks, side, global, svcOpts...)

	if cfg.Import.Enabled() {
		inbox, err := openDir(cfg.Import.Dir)
		if err != nil {
			return nil, fmt.Errorf("init import dir: %w", err)
		}
		c.inbox = importer.New(inbox, c.masks,
			importer.WithImageChecker(images),
			importer.WithLogger(logger),
		)
	}

	ok = true
	return c, nil
}

// maskListener fans store events out to SSE clients and the mutation
// counter. Selection changes are pushed but not counted.
func maskListener(b *sse.Broker, m *metrics.Metrics) func(maskstore.Event) {
	return func(e maskstore.Event) {
		b.PublishMaskEvent(string(e.Kind), e.ID)
		if e.Kind != maskstore.EventSelected {
			m.ObserveMutation(string(e.Kind))
		}
	}
}

func openDir(dir string) (*storage.FS, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return storage.NewFS(dir)
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	c, err := setup(ctx, opts...)
	if err != nil {
		return err
	}
	defer c.Close()

	cfg, logger := c.cfg, c.logger

	// Import files dropped while the server was down.
	if c.inbox != nil {
		n, err := c.inbox.Sync(ctx)
		if err != nil {
			logger.Warn("initial import failed", slog.String("error", err.Error()))
		} else if n > 0 {
			logger.Info("initial import done", slog.Int("files", n))
		}
	}

	apiRouter := api.NewRouter(c.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, c.broker)

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
	r.Get("/health/ready", readyHandler(c.kv))
	r.Handle("/metrics", c.metrics.Handler())

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the import directory.
	if c.inbox != nil {
		g.Go(func() error {
			if err := c.inbox.Watch(gCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("import watcher stopped", slog.String("error", err.Error()))
			}
			return nil
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

		// SSE handlers return once their channels close.
		c.broker.Close()

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

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout.
func RunMCP(ctx context.Context, opts ...Option) error {
	c, err := setup(ctx, append(opts, WithLogOutput(os.Stderr))...)
	if err != nil {
		return err
	}
	defer c.Close()

	c.logger.Info("Serving MCP over stdio")
	return mcpserver.New(c.svc).ServeStdio()
}

// ExportMask writes the mask with the given id into the export directory
// and returns the file name.
func ExportMask(ctx context.Context, id string, opts ...Option) (string, error) {
	c, err := setup(ctx, append(opts, WithLogOutput(os.Stderr))...)
	if err != nil {
		return "", err
	}
	defer c.Close()
	return c.svc.ExportMask(ctx, id)
}

// ImportFile imports the masks in a mask file and returns them.
func ImportFile(ctx context.Context, path string, opts ...Option) ([]models.Mask, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := setup(ctx, append(opts, WithLogOutput(os.Stderr))...)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	details, err := c.svc.ImportMasks(ctx, data)
	out := make([]models.Mask, len(details))
	for i, d := range details {
		out[i] = d.Mask
	}
	return out, err
}
