package sources

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	config "github.com/streamsmith/relay/pkg/config/v1"

	"github.com/streamsmith/relay/internal/events"
)

// maxLineBytes caps the length of a single ingested line. Lines longer than
// this are rejected by the scanner rather than truncated.
const maxLineBytes = 1024 * 1024

// Source defines the interface for event sources. A source publishes the
// events it ingests to the channel handed to Start and must not write to it
// after Stop returns.
type Source interface {
	// Start begins ingestion. It must not block.
	Start(ctx context.Context, out chan<- *events.LogEvent) error
	// Stop gracefully shuts down the source and waits for in-flight
	// publishes to finish.
	Stop(ctx context.Context) error
	// Name returns the configured ID of the source.
	Name() string
	// Type returns the component type of the source.
	Type() string
}

// New creates a source from its configuration.
func New(name string, conf *config.SourceConfig, log logrus.FieldLogger, clock events.Clock) (Source, error) {
	switch conf.Type {
	case config.SourceTypeFile:
		return NewFileSource(name, conf, log, clock), nil
	case config.SourceTypeTCP:
		return NewTCPSource(name, conf, log, clock), nil
	case config.SourceTypeStdin:
		return NewStdinSource(name, log, clock), nil
	case config.SourceTypeHTTP:
		return NewHTTPSource(name, conf, log, clock), nil
	case config.SourceTypeDemo:
		return NewDemoSource(name, conf, log, clock), nil
	default:
		return nil, fmt.Errorf("unknown source type %q", conf.Type)
	}
}
