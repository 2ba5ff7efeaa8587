package sources

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	config "github.com/streamsmith/relay/pkg/config/v1"

	"github.com/streamsmith/relay/internal/events"
)

// demoSource emits a synthetic event on an interval. Used for smoke testing
// a topology without real inputs.
type demoSource struct {
	name     string
	log      logrus.FieldLogger
	clock    events.Clock
	interval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDemoSource creates a new demo source.
func NewDemoSource(name string, conf *config.SourceConfig, log logrus.FieldLogger, clock events.Clock) Source {
	return &demoSource{
		name:     name,
		log:      log.WithField("source", name),
		clock:    clock,
		interval: conf.Interval.Duration(),
	}
}

// Start begins emitting synthetic events.
func (s *demoSource) Start(ctx context.Context, out chan<- *events.LogEvent) error {
	s.log.WithField("interval", s.interval).Info("Starting demo source")

	emitCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		var counter uint64

		for {
			select {
			case <-emitCtx.Done():
				return
			case <-ticker.C:
				counter++

				event := events.NewLogEvent(s.name, fmt.Sprintf("demo event %d", counter), s.clock.Now())
				event.SetField("counter", counter)

				select {
				case out <- event:
				case <-emitCtx.Done():
					return
				}
			}
		}
	}()

	return nil
}

// Stop stops the ticker and waits for the emitter to finish.
func (s *demoSource) Stop(ctx context.Context) error {
	s.log.Info("Stopping demo source")

	if s.cancel != nil {
		s.cancel()
	}

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *demoSource) Name() string { return s.name }
func (s *demoSource) Type() string { return config.SourceTypeDemo }
