package sinks

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	config "github.com/streamsmith/relay/pkg/config/v1"

	"github.com/streamsmith/relay/internal/events"
)

// consoleSink writes one encoded line per event to a writer, stdout by
// default.
type consoleSink struct {
	name     string
	log      logrus.FieldLogger
	encoding string
	metrics  *events.Metrics
	summary  *events.Summary

	mu     sync.Mutex
	writer io.Writer
}

// NewConsoleSink creates a new console sink.
func NewConsoleSink(name string, conf *config.SinkConfig, log logrus.FieldLogger, metrics *events.Metrics, summary *events.Summary) Sink {
	return &consoleSink{
		name:     name,
		log:      log.WithField("sink", name),
		encoding: conf.Encoding,
		metrics:  metrics,
		summary:  summary,
		writer:   os.Stdout,
	}
}

// Start starts the console sink.
func (s *consoleSink) Start(ctx context.Context) error {
	s.log.WithField("encoding", s.encoding).Info("Starting sink")

	return nil
}

// Stop stops the console sink.
func (s *consoleSink) Stop(ctx context.Context) error {
	s.log.Info("Stopping console sink")

	return nil
}

// HandleEvent encodes the event and writes it.
func (s *consoleSink) HandleEvent(ctx context.Context, event events.Event) error {
	line, err := encodeEvent(event, s.encoding)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.writer.Write(append(line, '\n')); err != nil {
		s.metrics.AddDeliveryFailed(1, s.name)
		s.summary.AddFailedEvents(1)

		return err
	}

	s.metrics.AddEventsDelivered(1, s.name)
	s.summary.AddEventsExported(1)

	return nil
}

func (s *consoleSink) Name() string {
	return s.name
}
