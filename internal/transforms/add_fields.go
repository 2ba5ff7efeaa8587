package transforms

import (
	"context"

	"github.com/sirupsen/logrus"
	config "github.com/streamsmith/relay/pkg/config/v1"

	"github.com/streamsmith/relay/internal/events"
)

// addFieldsTransform sets static fields on every event. Existing fields with
// the same key are overwritten.
type addFieldsTransform struct {
	name   string
	log    logrus.FieldLogger
	fields map[string]string
}

// NewAddFieldsTransform creates a new add_fields transform.
func NewAddFieldsTransform(name string, conf *config.TransformConfig, log logrus.FieldLogger) Transform {
	return &addFieldsTransform{
		name:   name,
		log:    log.WithField("transform", name),
		fields: conf.Fields,
	}
}

func (t *addFieldsTransform) Start(_ context.Context) error { return nil }
func (t *addFieldsTransform) Stop(_ context.Context) error  { return nil }
func (t *addFieldsTransform) Name() string                  { return t.name }

func (t *addFieldsTransform) Apply(_ context.Context, event *events.LogEvent) (bool, string, error) {
	for k, v := range t.fields {
		event.SetField(k, v)
	}

	return true, "", nil
}
