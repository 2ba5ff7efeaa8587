package application

import (
	"context"
	"fmt"
	"time"

	"github.com/streamsmith/relay/internal/events"
	"github.com/streamsmith/relay/internal/pipeline"
)

// Start initializes and starts all components of the application.
// It starts the clock service, builds the component graph, brings up the HTTP
// servers and starts the router.
func (a *Application) Start(ctx context.Context) error {
	if a.started.Load() {
		return ErrAlreadyStarted
	}

	a.log.Info("Starting application")

	if err := a.initClock(ctx); err != nil {
		return fmt.Errorf("failed to initialize clock: %w", err)
	}

	a.metrics = events.NewMetrics(metricsNamespace)
	a.summary = events.NewSummary(a.log, a.config.SummaryInterval.Duration())

	if err := a.initComponents(); err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}

	if err := a.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	if err := a.startPProfServer(); err != nil {
		return fmt.Errorf("failed to start pprof server: %w", err)
	}

	if err := a.startHealthCheckServer(); err != nil {
		return fmt.Errorf("failed to start health check server: %w", err)
	}

	router, err := pipeline.New(a.log, a.config, a.metrics, a.summary, a.sources, a.transforms, a.sinks)
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}

	a.router = router

	if err := a.router.Start(ctx); err != nil {
		return fmt.Errorf("failed to start router: %w", err)
	}

	summaryCtx, cancel := context.WithCancel(ctx)
	a.summaryCancel = cancel

	go a.summary.Start(summaryCtx)

	a.started.Store(true)
	a.log.Info("Application started successfully")

	return nil
}

// Stop gracefully shuts down all components of the application.
// The router drains in stage order so buffered events are delivered before
// the sinks flush.
func (a *Application) Stop(ctx context.Context) error {
	if !a.started.Load() {
		a.log.Debug("Application was not started, nothing to stop")

		return nil
	}

	a.log.Info("Stopping application")

	// Create a timeout context if one wasn't provided.
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
	}

	if a.summaryCancel != nil {
		a.summaryCancel()
	}

	if err := a.router.Stop(ctx); err != nil {
		a.log.WithError(err).Error("Failed to stop router")
	}

	a.stopServers(ctx)

	if a.ownClock != nil {
		if err := a.ownClock.Stop(ctx); err != nil {
			a.log.WithError(err).Error("Failed to stop clock service")
		}
	}

	a.started.Store(false)
	a.log.Info("Application stopped")

	return nil
}
