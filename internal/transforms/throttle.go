package transforms

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	config "github.com/streamsmith/relay/pkg/config/v1"

	"github.com/streamsmith/relay/internal/events"
)

// throttleTransform caps throughput at limit events per window. Events over
// the cap are dropped until the window rolls over.
type throttleTransform struct {
	name   string
	log    logrus.FieldLogger
	limit  int
	window time.Duration

	mu          sync.Mutex
	windowStart time.Time
	count       int
}

// NewThrottleTransform creates a new throttle transform.
func NewThrottleTransform(name string, conf *config.TransformConfig, log logrus.FieldLogger) Transform {
	return &throttleTransform{
		name:   name,
		log:    log.WithField("transform", name),
		limit:  conf.Limit,
		window: conf.Window.Duration(),
	}
}

func (t *throttleTransform) Start(_ context.Context) error { return nil }
func (t *throttleTransform) Stop(_ context.Context) error  { return nil }
func (t *throttleTransform) Name() string                  { return t.name }

func (t *throttleTransform) Apply(_ context.Context, event *events.LogEvent) (bool, string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	if now.Sub(t.windowStart) >= t.window {
		t.windowStart = now
		t.count = 0
	}

	if t.count >= t.limit {
		return false, "throttled", nil
	}

	t.count++

	return true, "", nil
}
