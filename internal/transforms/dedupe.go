package transforms

import (
	"context"

	"github.com/sirupsen/logrus"
	config "github.com/streamsmith/relay/pkg/config/v1"

	"github.com/streamsmith/relay/internal/events"
)

// dedupeTransform drops events whose fingerprint was seen within the TTL
// window. The fingerprint covers the configured fields, or the message and
// all fields when none are configured.
type dedupeTransform struct {
	name   string
	log    logrus.FieldLogger
	fields []string
	cache  *events.DuplicateCache
}

// NewDedupeTransform creates a new dedupe transform.
func NewDedupeTransform(name string, conf *config.TransformConfig, log logrus.FieldLogger) Transform {
	return &dedupeTransform{
		name:   name,
		log:    log.WithField("transform", name),
		fields: conf.DedupeFields,
		cache:  events.NewDuplicateCache(conf.TTL.Duration()),
	}
}

func (t *dedupeTransform) Start(_ context.Context) error {
	t.cache.Start()

	return nil
}

func (t *dedupeTransform) Stop(_ context.Context) error {
	t.cache.Stop()

	return nil
}

func (t *dedupeTransform) Name() string { return t.name }

func (t *dedupeTransform) Apply(_ context.Context, event *events.LogEvent) (bool, string, error) {
	fingerprint, err := events.Fingerprint(event, t.fields)
	if err != nil {
		// An unhashable event cannot be deduplicated; let it through.
		t.log.WithError(err).Debug("Failed to fingerprint event")

		return true, "", nil
	}

	if t.cache.SeenOrRecord(fingerprint, event.Time()) {
		return false, "duplicate", nil
	}

	return true, "", nil
}
