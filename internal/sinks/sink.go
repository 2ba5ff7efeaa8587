package sinks

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	config "github.com/streamsmith/relay/pkg/config/v1"

	"github.com/streamsmith/relay/internal/events"
)

// Sink defines the interface for event sinks.
type Sink interface {
	// Start initializes and starts the sink.
	Start(ctx context.Context) error
	// Stop flushes pending batches and gracefully shuts down the sink.
	Stop(ctx context.Context) error
	// HandleEvent processes an event and forwards it to the destination.
	// Batching sinks buffer internally; a nil return does not imply the
	// event has reached the destination yet.
	HandleEvent(ctx context.Context, event events.Event) error
	// Name returns the configured ID of the sink.
	Name() string
}

// New creates a sink from its configuration.
func New(name string, conf *config.SinkConfig, log logrus.FieldLogger, metrics *events.Metrics, summary *events.Summary) (Sink, error) {
	switch conf.Type {
	case config.SinkTypeConsole:
		return NewConsoleSink(name, conf, log, metrics, summary), nil
	case config.SinkTypeFile:
		return NewFileSink(name, conf, log, metrics, summary), nil
	case config.SinkTypeHTTP:
		return NewHTTPSink(name, conf, log, metrics, summary), nil
	case config.SinkTypeBlackhole:
		return NewBlackholeSink(name, log, metrics, summary), nil
	default:
		return nil, fmt.Errorf("unknown sink type %q", conf.Type)
	}
}
