package transforms

import (
	"context"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	config "github.com/streamsmith/relay/pkg/config/v1"

	"github.com/streamsmith/relay/internal/events"
)

// sampleTransform keeps 1 out of every rate events and drops the rest.
type sampleTransform struct {
	name    string
	log     logrus.FieldLogger
	rate    uint64
	counter atomic.Uint64
}

// NewSampleTransform creates a new sample transform.
func NewSampleTransform(name string, conf *config.TransformConfig, log logrus.FieldLogger) Transform {
	return &sampleTransform{
		name: name,
		log:  log.WithField("transform", name),
		rate: uint64(conf.Rate),
	}
}

func (t *sampleTransform) Start(_ context.Context) error { return nil }
func (t *sampleTransform) Stop(_ context.Context) error  { return nil }
func (t *sampleTransform) Name() string                  { return t.name }

func (t *sampleTransform) Apply(_ context.Context, event *events.LogEvent) (bool, string, error) {
	n := t.counter.Add(1)

	// The first event of every window of `rate` events is kept.
	if (n-1)%t.rate == 0 {
		return true, "", nil
	}

	return false, "sampled", nil
}
