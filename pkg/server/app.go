package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"TFoldSV/internal/domain/models"
	"TFoldSV/internal/usecase"
	"TFoldSV/pkg/config"
	xhttp "TFoldSV/pkg/http"
	applogger "TFoldSV/pkg/logger"
)

// Resource is a dependency the App releases on shutdown.
type Resource struct {
	Name   string
	Closer io.Closer
}

// App encapsulates the application lifecycle.
type App struct {
	cfg       *config.Config
	log       *applogger.Logger
	reports   *usecase.FoldReportUseCase
	server    *xhttp.Server
	resources []Resource
}

// New creates an App. server may be nil when the HTTP API is disabled; only RunOnce is
// usable then.
func New(cfg *config.Config, log *applogger.Logger, reports *usecase.FoldReportUseCase, server *xhttp.Server, resources ...Resource) *App {
	if log == nil {
		log = applogger.Nop()
	}
	return &App{cfg: cfg, log: log, reports: reports, server: server, resources: resources}
}

// Run serves the HTTP API until ctx is canceled or the listener fails, then shuts down.
func (a *App) Run(ctx context.Context) error {
	if a.server == nil {
		return errors.New("http server is disabled")
	}
	if err := a.server.Start(); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case runErr = <-a.server.Errors():
		a.log.Error("http server failed", applogger.Error(runErr))
	}
	return errors.Join(runErr, a.shutdown())
}

// RunOnce generates one report with the configured defaults and writes it to w as JSON.
func (a *App) RunOnce(ctx context.Context, w io.Writer) error {
	defer func() {
		if err := a.Close(); err != nil {
			a.log.Warn("closing resources failed", applogger.Error(err))
		}
	}()

	report, err := a.reports.Generate(ctx, models.FoldReportRequest{NoCache: true})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// Close releases every resource in registration order.
func (a *App) Close() error {
	var errs []error
	for _, r := range a.resources {
		if r.Closer == nil {
			continue
		}
		if err := r.Closer.Close(); err != nil {
			a.log.Warn("resource close error", applogger.String("resource", r.Name), applogger.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", r.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (a *App) shutdown() error {
	a.log.Info("shutting down")

	// The server applies its own shutdown timeout.
	stopErr := a.server.Stop(context.Background())
	if stopErr != nil {
		a.log.Error("http shutdown error", applogger.Error(stopErr))
	}

	closeErr := a.Close()
	a.log.Info("shutdown complete")
	return errors.Join(stopErr, closeErr)
}
