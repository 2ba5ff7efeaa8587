package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	config "github.com/streamsmith/relay/pkg/config/v1"

	"github.com/streamsmith/relay/internal/events"
	"github.com/streamsmith/relay/internal/relay"
)

// httpSink POSTs JSON-array batches of events to a remote endpoint. Batches
// flush when they reach the configured event count or byte size, or when the
// flush timeout elapses. Encoded payloads above max_payload_bytes are split
// into multiple requests; a single event too large to ever fit is dropped.
type httpSink struct {
	name    string
	log     logrus.FieldLogger
	conf    *config.SinkConfig
	metrics *events.Metrics
	summary *events.Summary
	client  *http.Client

	mu           sync.Mutex
	pending      [][]byte
	pendingBytes int

	flushCh chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewHTTPSink creates a new HTTP sink.
func NewHTTPSink(name string, conf *config.SinkConfig, log logrus.FieldLogger, metrics *events.Metrics, summary *events.Summary) Sink {
	return &httpSink{
		name:    name,
		log:     log.WithField("sink", name),
		conf:    conf,
		metrics: metrics,
		summary: summary,
		client:  &http.Client{Timeout: 30 * time.Second},
		flushCh: make(chan struct{}, 1),
	}
}

// Start begins the background flush loop.
func (s *httpSink) Start(ctx context.Context) error {
	s.log.WithFields(logrus.Fields{
		"address":     s.conf.Address,
		"compression": s.conf.Compression,
	}).Info("Starting sink")

	flushCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.conf.Batch.Timeout.Duration())
		defer ticker.Stop()

		for {
			select {
			case <-flushCtx.Done():
				return
			case <-ticker.C:
				s.flush(flushCtx)
			case <-s.flushCh:
				s.flush(flushCtx)
				ticker.Reset(s.conf.Batch.Timeout.Duration())
			}
		}
	}()

	return nil
}

// Stop flushes the remaining batch and stops the flush loop.
func (s *httpSink) Stop(ctx context.Context) error {
	s.log.Info("Stopping http sink")

	if s.cancel != nil {
		s.cancel()
	}

	s.wg.Wait()

	// Final flush with the caller's deadline.
	s.flush(ctx)

	return nil
}

// HandleEvent encodes the event and adds it to the pending batch.
func (s *httpSink) HandleEvent(ctx context.Context, event events.Event) error {
	encoded, err := json.Marshal(events.Encodable(event))
	if err != nil {
		return err
	}

	// An event whose encoding alone exceeds the payload limit can never be
	// sent; drop it rather than wedge the batch.
	if len(encoded)+2 > s.conf.MaxPayloadBytes {
		s.log.WithField("bytes", len(encoded)).Warn("Event too large to encode, dropping")
		s.metrics.AddEventsDropped(1, s.name, "oversized")
		s.summary.AddDroppedEvents(1)

		return nil
	}

	s.mu.Lock()
	s.pending = append(s.pending, encoded)
	s.pendingBytes += len(encoded)
	full := len(s.pending) >= s.conf.Batch.MaxEvents || s.pendingBytes >= s.conf.Batch.MaxBytes
	s.mu.Unlock()

	if full {
		select {
		case s.flushCh <- struct{}{}:
		default:
		}
	}

	return nil
}

func (s *httpSink) Name() string {
	return s.name
}

// flush sends all pending events, splitting into multiple requests when the
// encoded payload would exceed max_payload_bytes.
func (s *httpSink) flush(ctx context.Context) {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.pendingBytes = 0
	s.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	for len(batch) > 0 {
		payload, n := buildPayload(batch, s.conf.MaxPayloadBytes)
		batch = batch[n:]

		if err := s.send(ctx, payload, n); err != nil {
			s.log.WithError(err).WithField("events", n).Error("Failed to deliver batch")
			s.metrics.AddDeliveryFailed(n, s.name)
			s.summary.AddFailedEvents(uint64(n))

			continue
		}

		s.metrics.AddEventsDelivered(n, s.name)
		s.metrics.ObserveBatchSize(n, s.name)
		s.summary.AddEventsExported(uint64(n))
	}
}

// buildPayload serializes encoded events into a JSON array no larger than
// maxBytes and returns the payload plus how many events it holds. At least
// one event is always included; oversized single events are filtered out
// before they reach the batch.
func buildPayload(encoded [][]byte, maxBytes int) ([]byte, int) {
	var (
		buf bytes.Buffer
		n   int
	)

	buf.WriteByte('[')

	for _, item := range encoded {
		// Account for the separator or closing bracket.
		if n > 0 && buf.Len()+len(item)+2 > maxBytes {
			break
		}

		if n > 0 {
			buf.WriteByte(',')
		}

		buf.Write(item)
		n++
	}

	buf.WriteByte(']')

	return buf.Bytes(), n
}

// send delivers one payload with retries and exponential backoff.
func (s *httpSink) send(ctx context.Context, payload []byte, count int) error {
	body, err := compressPayload(payload, s.conf.Compression)
	if err != nil {
		return err
	}

	backoff := s.conf.Retry.InitialBackoff.Duration()

	var lastErr error

	for attempt := 1; attempt <= s.conf.Retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}

			backoff *= 2
			if backoff > s.conf.Retry.MaxBackoff.Duration() {
				backoff = s.conf.Retry.MaxBackoff.Duration()
			}
		}

		lastErr = s.post(ctx, body)
		if lastErr == nil {
			return nil
		}

		s.log.WithError(lastErr).WithFields(logrus.Fields{
			"attempt": attempt,
			"events":  count,
		}).Warn("Delivery attempt failed")
	}

	return lastErr
}

func (s *httpSink) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.conf.Address, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", relay.FullVWithPlatform())

	switch s.conf.Compression {
	case config.CompressionGzip:
		req.Header.Set("Content-Encoding", "gzip")
	case config.CompressionZstd:
		req.Header.Set("Content-Encoding", "zstd")
	}

	for k, v := range s.conf.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return nil
}
