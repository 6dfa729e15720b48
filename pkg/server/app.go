package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"midas/internal/domain/models"
	"midas/internal/domain/repository"
	"midas/internal/handler/api"
	"midas/internal/usecase"
	"midas/pkg/cache"
	"midas/pkg/config"
	xhttp "midas/pkg/http"
	applogger "midas/pkg/logger"
	pkgpostgres "midas/pkg/postgres"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	orch       *usecase.Orchestrator
	verifier   *usecase.Verifier
	handler    *api.ReportHandler
	pgClient   *pkgpostgres.Client
	sink       repository.ReportSink
	cacheSvc   cache.Service
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	orch *usecase.Orchestrator,
	verifier *usecase.Verifier,
	handler *api.ReportHandler,
	pgClient *pkgpostgres.Client,
	sink repository.ReportSink,
	cacheSvc cache.Service,
) *App {
	return &App{
		cfg:      cfg,
		l:        l,
		orch:     orch,
		verifier: verifier,
		handler:  handler,
		pgClient: pgClient,
		sink:     sink,
		cacheSvc: cacheSvc,
	}
}

// Run executes one ingestion pass. With the HTTP server enabled it then
// keeps serving the run report until interrupted.
func (a *App) Run() (*models.RunReport, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A signal during ingestion cancels the context; pipelines stop at
	// the next transaction boundary.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			a.l.Info("shutdown signal received")
			cancel()
		case <-ctx.Done():
		}
	}()

	report := a.orch.Run(ctx)
	a.handler.SetRunReport(report)

	if a.cfg.Server.Enabled && ctx.Err() == nil {
		a.httpServer = xhttp.NewServer(a.handler,
			xhttp.WithPort(a.cfg.Server.Port),
			xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		)
		if err := a.httpServer.Start(); err != nil {
			a.l.Error("http server start error", applogger.Error(err))
			a.shutdown()
			return report, err
		}
		<-ctx.Done()
	}

	a.shutdown()
	return report, nil
}

// RunVerify executes a read-only verification pass.
func (a *App) RunVerify() (*models.VerifyReport, error) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	report, err := a.verifier.Run(ctx)
	a.shutdown()
	return report, err
}

// shutdown stops all services and closes infrastructure clients.
func (a *App) shutdown() {
	if a.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.l.Warn("http shutdown error", applogger.Error(err))
		}
	}

	if a.sink != nil {
		if err := a.sink.Close(); err != nil {
			a.l.Warn("report sink close error", applogger.Error(err))
		}
	}

	if a.cacheSvc != nil {
		if err := a.cacheSvc.Close(); err != nil {
			a.l.Warn("cache close error", applogger.Error(err))
		}
	}

	if a.pgClient != nil {
		a.pgClient.Close()
	}

	a.l.Info("shutdown complete")
}
