// Package application provides the core relay functionality as a reusable library.
// It wires sources, transforms and sinks into pipelines, runs the router and
// exposes HTTP endpoints for health checks and metrics.
package application

import (
	"net/http"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	config "github.com/streamsmith/relay/pkg/config/v1"

	"github.com/streamsmith/relay/internal/clockdrift"
	"github.com/streamsmith/relay/internal/events"
	"github.com/streamsmith/relay/internal/pipeline"
	"github.com/streamsmith/relay/internal/sinks"
	"github.com/streamsmith/relay/internal/sources"
	"github.com/streamsmith/relay/internal/transforms"
)

// metricsNamespace prefixes every Prometheus metric the relay registers.
const metricsNamespace = "relay"

// Application represents a relay instance with all its components.
// It owns the component graph, the router that moves events through it,
// metrics collection, and the HTTP endpoints for health checks and metrics.
type Application struct {
	config  *config.Config
	log     logrus.FieldLogger
	clock   clockdrift.ClockDrift
	metrics *events.Metrics
	summary *events.Summary

	sources    map[string]sources.Source
	transforms map[string]transforms.Transform
	sinks      map[string]sinks.Sink
	router     *pipeline.Router

	servers *ServerManager
	debug   bool
	started atomic.Bool

	// Owned clock service, stopped on Stop. Nil when the clock came from Options.
	ownClock *clockdrift.Service

	// Cancel function for the summary goroutine.
	summaryCancel func()
}

// ServerManager handles HTTP server lifecycle for metrics, pprof, and health checks.
type ServerManager struct {
	metricsServer     *http.Server
	pprofServer       *http.Server
	healthCheckServer *http.Server
}

// New creates a new Application instance with the provided options.
// It validates the configuration and sets up logging but does not start any
// services. Use Start() to begin processing.
func New(opts Options) (*Application, error) {
	if opts.Config == nil {
		return nil, ErrConfigRequired
	}

	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}

	if opts.Logger == nil {
		opts.Logger = logrus.New().WithField("module", "relay")
	}

	app := &Application{
		config:     opts.Config,
		log:        opts.Logger,
		debug:      opts.Debug,
		clock:      opts.Clock,
		sources:    make(map[string]sources.Source),
		transforms: make(map[string]transforms.Transform),
		sinks:      make(map[string]sinks.Sink),
		servers:    &ServerManager{},
	}

	return app, nil
}

// Config returns the application configuration.
func (a *Application) Config() *config.Config {
	return a.config
}

// Logger returns the application logger.
func (a *Application) Logger() logrus.FieldLogger {
	return a.log
}

// Metrics returns the pipeline metrics. Nil before Start.
func (a *Application) Metrics() *events.Metrics {
	return a.metrics
}

// Summary returns the periodic delivery summary. Nil before Start.
func (a *Application) Summary() *events.Summary {
	return a.summary
}

// Router returns the pipeline router. Nil before Start.
func (a *Application) Router() *pipeline.Router {
	return a.router
}

// Clock returns the clock service instance.
func (a *Application) Clock() clockdrift.ClockDrift {
	return a.clock
}

// IsHealthy returns true once the router is running.
func (a *Application) IsHealthy() bool {
	return a.started.Load()
}
