package sinks

import (
	"context"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/streamsmith/relay/internal/events"
)

// blackholeSink discards events, counting them. Useful for benchmarking a
// topology and for smoke tests.
type blackholeSink struct {
	name    string
	log     logrus.FieldLogger
	metrics *events.Metrics
	summary *events.Summary
	count   atomic.Uint64
}

// NewBlackholeSink creates a new blackhole sink.
func NewBlackholeSink(name string, log logrus.FieldLogger, metrics *events.Metrics, summary *events.Summary) Sink {
	return &blackholeSink{
		name:    name,
		log:     log.WithField("sink", name),
		metrics: metrics,
		summary: summary,
	}
}

// Start starts the blackhole sink.
func (s *blackholeSink) Start(ctx context.Context) error {
	s.log.Info("Starting sink")

	return nil
}

// Stop logs the number of discarded events.
func (s *blackholeSink) Stop(ctx context.Context) error {
	s.log.WithField("events", s.count.Load()).Info("Stopping blackhole sink")

	return nil
}

// HandleEvent discards the event.
func (s *blackholeSink) HandleEvent(ctx context.Context, event events.Event) error {
	s.count.Add(1)
	s.metrics.AddEventsDelivered(1, s.name)
	s.summary.AddEventsExported(1)

	return nil
}

func (s *blackholeSink) Name() string {
	return s.name
}

// Count returns the number of events discarded so far.
func (s *blackholeSink) Count() uint64 {
	return s.count.Load()
}
