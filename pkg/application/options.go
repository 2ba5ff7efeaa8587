package application

import (
	"github.com/sirupsen/logrus"
	config "github.com/streamsmith/relay/pkg/config/v1"

	"github.com/streamsmith/relay/internal/clockdrift"
)

// Options contains all configuration options for creating an Application.
// Config is required, all other fields are optional and will use defaults if not provided.
type Options struct {
	// Config is the relay configuration. This field is required.
	Config *config.Config

	// Logger is the logger to use. If nil, a default logger will be created.
	Logger logrus.FieldLogger

	// Debug enables debug mode which routes every sink to the console instead
	// of the configured outputs.
	Debug bool

	// Clock is an optional clock service. If nil, one will be created from the
	// configuration during Start().
	Clock clockdrift.ClockDrift
}

// DefaultOptions returns Options with sensible defaults.
// You must still provide a Config before creating an Application.
func DefaultOptions() Options {
	return Options{
		Logger: logrus.New().WithField("module", "relay"),
		Debug:  false,
	}
}

// WithConfig sets the configuration.
func (o Options) WithConfig(cfg *config.Config) Options {
	o.Config = cfg

	return o
}

// WithLogger sets the logger.
func (o Options) WithLogger(logger logrus.FieldLogger) Options {
	o.Logger = logger

	return o
}

// WithDebug enables or disables debug mode.
func (o Options) WithDebug(debug bool) Options {
	o.Debug = debug

	return o
}

// WithClock sets the clock service.
func (o Options) WithClock(clock clockdrift.ClockDrift) Options {
	o.Clock = clock

	return o
}
