package transforms

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	config "github.com/streamsmith/relay/pkg/config/v1"

	"github.com/streamsmith/relay/internal/events"
)

// Transform defines the interface for event transforms. Apply mutates the
// event in place and reports whether the event should continue through the
// chain. A transform returning keep=false drops the event.
type Transform interface {
	// Start initializes any transform state.
	Start(ctx context.Context) error
	// Stop releases transform state.
	Stop(ctx context.Context) error
	// Apply processes one event. The returned reason names why an event
	// was dropped and is used as a metric label.
	Apply(ctx context.Context, event *events.LogEvent) (keep bool, reason string, err error)
	// Name returns the configured ID of the transform.
	Name() string
}

// New creates a transform from its configuration.
func New(name string, conf *config.TransformConfig, log logrus.FieldLogger) (Transform, error) {
	switch conf.Type {
	case config.TransformTypeParseJSON:
		return NewParseJSONTransform(name, conf, log), nil
	case config.TransformTypeFilter:
		return NewFilterTransform(name, conf, log), nil
	case config.TransformTypeAddFields:
		return NewAddFieldsTransform(name, conf, log), nil
	case config.TransformTypeSample:
		return NewSampleTransform(name, conf, log), nil
	case config.TransformTypeDedupe:
		return NewDedupeTransform(name, conf, log), nil
	case config.TransformTypeThrottle:
		return NewThrottleTransform(name, conf, log), nil
	default:
		return nil, fmt.Errorf("unknown transform type %q", conf.Type)
	}
}
