package app

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
	"github.com/hibiken/asynq"

	"github.com/vadim/postpilot/internal/config"
	httpcontroller "github.com/vadim/postpilot/internal/controller/http"
	"github.com/vadim/postpilot/internal/domain/post/scheduler"
	"github.com/vadim/postpilot/internal/httpx/response"
	"github.com/vadim/postpilot/internal/queue"
	"github.com/vadim/postpilot/internal/storage"
	"github.com/vadim/postpilot/internal/telemetry"
)

// App is the main application container
type App struct {
	cfg        config.Config
	httpServer *http.Server
	router     *chi.Mux
	logger     *slog.Logger

	core *Core

	// Media storage, nil when S3 is not configured
	media *storage.S3Storage

	// Publisher cycle trigger
	scheduler *scheduler.Scheduler

	// Exact-time publish worker, nil when the queue is not configured
	queueServer *asynq.Server
}

// NewApp creates and initializes the application
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	logger := telemetry.NewLogger(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	core, err := NewCore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing core: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(telemetry.RequestLogger(logger))
	r.Use(core.Metrics.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.Timeout(30 * time.Second))

	app := &App{
		cfg:    cfg,
		router: r,
		logger: logger,
		core:   core,
	}

	if err := app.initInfrastructure(); err != nil {
		core.Close()
		return nil, fmt.Errorf("initializing infrastructure: %w", err)
	}

	if err := app.registerRoutes(); err != nil {
		core.Close()
		return nil, fmt.Errorf("registering routes: %w", err)
	}

	app.httpServer = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      app.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return app, nil
}

// initInfrastructure initializes optional components: media storage, scheduler and queue worker
func (a *App) initInfrastructure() error {
	if a.cfg.S3.Endpoint != "" {
		media, err := storage.NewS3Storage(storage.S3Config{
			Endpoint:        a.cfg.S3.Endpoint,
			AccessKeyID:     a.cfg.S3.AccessKeyID,
			SecretAccessKey: a.cfg.S3.SecretAccessKey,
			Bucket:          a.cfg.S3.Bucket,
			Region:          a.cfg.S3.Region,
			PublicURL:       a.cfg.S3.PublicURL,
		})
		if err != nil {
			return fmt.Errorf("creating media storage: %w", err)
		}
		a.media = media
	}

	if a.cfg.Scheduler.Enabled {
		s, err := scheduler.New(a.core.Policy, scheduler.Config{
			Spec:       a.cfg.Scheduler.Spec,
			RunOnStart: a.cfg.Scheduler.RunOnStart,
		}, a.logger)
		if err != nil {
			return err
		}
		a.scheduler = s
	}

	if a.cfg.Queue.Enabled() {
		a.queueServer = queue.NewServer(RedisOpt(a.cfg.Queue), a.cfg.Queue.Concurrency, a.logger)
	}

	return nil
}

// registerRoutes registers all HTTP routes
func (a *App) registerRoutes() error {
	a.router.Get("/healthz", a.healthHandler)
	a.router.Get("/readyz", a.readyHandler)
	a.router.Handle("/metrics", a.core.Metrics.Handler())

	swaggerHandler, err := httpcontroller.NewSwaggerHandler("PostPilot API", OpenAPISpec)
	if err != nil {
		return err
	}
	swaggerHandler.RegisterRoutes(a.router)

	a.router.Route("/api/v1", func(r chi.Router) {
		httpcontroller.NewPostHandler(a.core.Posts, a.core.Policy).RegisterRoutes(r)
		httpcontroller.NewScheduledPostHandler(a.core.Posts).RegisterRoutes(r)
		httpcontroller.NewPreferenceHandler(a.core.Prefs).RegisterRoutes(r)
		httpcontroller.NewConnectionHandler(a.core.Posts).RegisterRoutes(r)

		if a.media != nil {
			httpcontroller.NewMediaHandler(a.media).RegisterRoutes(r)
		}
	})

	return nil
}

// healthHandler handles health check requests
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{"status": "ok"})
}

// readyHandler reports ready once the database answers
func (a *App) readyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.core.Pool.Ping(ctx); err != nil {
		response.Error(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	response.OK(w, map[string]string{"status": "ready"})
}

// Run starts the application and blocks until shutdown signal
func (a *App) Run(ctx context.Context) error {
	if a.scheduler != nil {
		a.scheduler.Start(ctx)
	}

	if a.queueServer != nil {
		mux := asynq.NewServeMux()
		queue.NewWorker(a.core.Policy, a.logger).RegisterHandlers(mux)
		if err := a.queueServer.Start(mux); err != nil {
			return fmt.Errorf("starting queue worker: %w", err)
		}
	}

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", "addr", a.cfg.Server.Address())
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case err := <-errCh:
		runErr = fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		a.logger.Info("context cancelled")
	}

	if err := a.Shutdown(context.Background()); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	httpErr := a.httpServer.Shutdown(shutdownCtx)

	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.queueServer != nil {
		a.queueServer.Shutdown()
	}

	if err := a.core.Close(); err != nil {
		a.logger.Warn("closing integrations", "error", err)
	}

	if httpErr != nil {
		return fmt.Errorf("shutting down HTTP server: %w", httpErr)
	}

	a.logger.Info("shutdown complete")
	return nil
}
