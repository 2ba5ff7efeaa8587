package transforms

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	config "github.com/streamsmith/relay/pkg/config/v1"

	"github.com/streamsmith/relay/internal/events"
)

// filterTransform keeps events whose fields match all configured values.
// With invert set it drops the matching events instead.
type filterTransform struct {
	name   string
	log    logrus.FieldLogger
	match  map[string]string
	invert bool
}

// NewFilterTransform creates a new filter transform.
func NewFilterTransform(name string, conf *config.TransformConfig, log logrus.FieldLogger) Transform {
	return &filterTransform{
		name:   name,
		log:    log.WithField("transform", name),
		match:  conf.Match,
		invert: conf.Invert,
	}
}

func (t *filterTransform) Start(_ context.Context) error { return nil }
func (t *filterTransform) Stop(_ context.Context) error  { return nil }
func (t *filterTransform) Name() string                  { return t.name }

func (t *filterTransform) Apply(_ context.Context, event *events.LogEvent) (bool, string, error) {
	matched := true

	for key, want := range t.match {
		v, ok := event.GetField(key)
		if !ok || fmt.Sprint(v) != want {
			matched = false

			break
		}
	}

	if matched != t.invert {
		return true, "", nil
	}

	return false, "filtered", nil
}
