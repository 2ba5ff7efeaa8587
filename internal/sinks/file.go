package sinks

import (
	"bufio"
	"context"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	config "github.com/streamsmith/relay/pkg/config/v1"

	"github.com/streamsmith/relay/internal/events"
)

// flushInterval is how often the buffered writer is flushed to disk.
const flushInterval = time.Second

// fileSink appends one encoded line per event to a file.
type fileSink struct {
	name     string
	log      logrus.FieldLogger
	path     string
	encoding string
	metrics  *events.Metrics
	summary  *events.Summary

	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewFileSink creates a new file sink.
func NewFileSink(name string, conf *config.SinkConfig, log logrus.FieldLogger, metrics *events.Metrics, summary *events.Summary) Sink {
	return &fileSink{
		name:     name,
		log:      log.WithField("sink", name),
		path:     conf.Path,
		encoding: conf.Encoding,
		metrics:  metrics,
		summary:  summary,
	}
}

// Start opens the file for appending and begins periodic flushing.
func (s *fileSink) Start(ctx context.Context) error {
	s.log.WithField("path", s.path).Info("Starting sink")

	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	s.file = file
	s.writer = bufio.NewWriter(file)

	flushCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(flushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-flushCtx.Done():
				return
			case <-ticker.C:
				s.flush()
			}
		}
	}()

	return nil
}

// Stop flushes buffered lines and closes the file.
func (s *fileSink) Stop(ctx context.Context) error {
	s.log.Info("Stopping file sink")

	if s.cancel != nil {
		s.cancel()
	}

	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writer != nil {
		if err := s.writer.Flush(); err != nil {
			return err
		}
	}

	if s.file != nil {
		return s.file.Close()
	}

	return nil
}

// HandleEvent encodes the event and appends it to the file buffer.
func (s *fileSink) HandleEvent(ctx context.Context, event events.Event) error {
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

func (s *fileSink) Name() string {
	return s.name
}

func (s *fileSink) flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writer.Flush(); err != nil {
		s.log.WithError(err).Error("Failed to flush file sink")
	}
}
