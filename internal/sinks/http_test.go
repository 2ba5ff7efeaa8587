package sinks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	config "github.com/streamsmith/relay/pkg/config/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamsmith/relay/internal/events"
	"github.com/streamsmith/relay/internal/relay"
)

// httpSinkConfig returns a config pointed at the given server with fast
// flush and retry settings.
func httpSinkConfig(address string) *config.SinkConfig {
	return &config.SinkConfig{
		Type:            config.SinkTypeHTTP,
		Address:         address,
		Encoding:        config.EncodingJSON,
		Compression:     config.CompressionNone,
		MaxPayloadBytes: 4194304,
		Batch: config.BatchConfig{
			MaxEvents: 10,
			MaxBytes:  1048576,
			Timeout:   config.Duration(50 * time.Millisecond),
		},
		Retry: config.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: config.Duration(10 * time.Millisecond),
			MaxBackoff:     config.Duration(100 * time.Millisecond),
		},
	}
}

// capturingServer records every batch body it receives.
type capturingServer struct {
	mu        sync.Mutex
	batches   [][]map[string]any
	userAgent string
	server    *httptest.Server
}

func newCapturingServer(t *testing.T, compression string) *capturingServer {
	t.Helper()

	cs := &capturingServer{}
	cs.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		decoded, err := decompressPayload(body, compression)
		require.NoError(t, err)

		var batch []map[string]any
		require.NoError(t, json.Unmarshal(decoded, &batch))

		cs.mu.Lock()
		cs.batches = append(cs.batches, batch)
		cs.userAgent = r.UserAgent()
		cs.mu.Unlock()

		w.WriteHeader(http.StatusAccepted)
	}))

	t.Cleanup(cs.server.Close)

	return cs
}

func (cs *capturingServer) waitForEvents(t *testing.T, n int) []map[string]any {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		cs.mu.Lock()

		var all []map[string]any
		for _, batch := range cs.batches {
			all = append(all, batch...)
		}

		cs.mu.Unlock()

		if len(all) >= n {
			return all
		}

		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("timed out waiting for %d events", n)

	return nil
}

func (cs *capturingServer) batchCount() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	return len(cs.batches)
}

func TestHTTPSink_FlushOnTimeout(t *testing.T) {
	metrics, summary := testMetrics()
	cs := newCapturingServer(t, config.CompressionNone)

	sink := NewHTTPSink("out", httpSinkConfig(cs.server.URL), logrus.New(), metrics, summary)

	ctx := context.Background()
	require.NoError(t, sink.Start(ctx))

	event := events.NewLogEvent("in", "hello", time.Now())
	require.NoError(t, sink.HandleEvent(ctx, event))

	got := cs.waitForEvents(t, 1)
	assert.Equal(t, "hello", got[0]["message"])

	cs.mu.Lock()
	assert.Equal(t, relay.FullVWithPlatform(), cs.userAgent)
	cs.mu.Unlock()

	require.NoError(t, sink.Stop(ctx))
	assert.Equal(t, uint64(1), summary.GetEventsExported())
}

func TestHTTPSink_FlushOnMaxEvents(t *testing.T) {
	metrics, summary := testMetrics()
	cs := newCapturingServer(t, config.CompressionNone)

	conf := httpSinkConfig(cs.server.URL)
	conf.Batch.MaxEvents = 5
	conf.Batch.Timeout = config.Duration(time.Hour)

	sink := NewHTTPSink("out", conf, logrus.New(), metrics, summary)

	ctx := context.Background()
	require.NoError(t, sink.Start(ctx))

	defer func() {
		require.NoError(t, sink.Stop(ctx))
	}()

	for i := 0; i < 5; i++ {
		require.NoError(t, sink.HandleEvent(ctx, events.NewLogEvent("in", "e", time.Now())))
	}

	// The batch flushes without waiting for the (one hour) timeout.
	got := cs.waitForEvents(t, 5)
	assert.Len(t, got, 5)
	assert.Equal(t, uint64(5), summary.GetEventsExported())

	_ = metrics
}

func TestHTTPSink_StopFlushesPending(t *testing.T) {
	metrics, summary := testMetrics()
	cs := newCapturingServer(t, config.CompressionNone)

	conf := httpSinkConfig(cs.server.URL)
	conf.Batch.Timeout = config.Duration(time.Hour)

	sink := NewHTTPSink("out", conf, logrus.New(), metrics, summary)

	ctx := context.Background()
	require.NoError(t, sink.Start(ctx))

	require.NoError(t, sink.HandleEvent(ctx, events.NewLogEvent("in", "pending", time.Now())))
	require.NoError(t, sink.Stop(ctx))

	got := cs.waitForEvents(t, 1)
	assert.Equal(t, "pending", got[0]["message"])
	assert.Equal(t, uint64(1), summary.GetEventsExported())
}

func TestHTTPSink_Compression(t *testing.T) {
	for _, compression := range []string{config.CompressionGzip, config.CompressionZstd} {
		t.Run(compression, func(t *testing.T) {
			metrics, summary := testMetrics()
			cs := newCapturingServer(t, compression)

			conf := httpSinkConfig(cs.server.URL)
			conf.Compression = compression

			sink := NewHTTPSink("out", conf, logrus.New(), metrics, summary)

			ctx := context.Background()
			require.NoError(t, sink.Start(ctx))

			require.NoError(t, sink.HandleEvent(ctx, events.NewLogEvent("in", "compressed", time.Now())))

			got := cs.waitForEvents(t, 1)
			assert.Equal(t, "compressed", got[0]["message"])

			require.NoError(t, sink.Stop(ctx))
			assert.Equal(t, uint64(1), summary.GetEventsExported())
		})
	}
}

func TestHTTPSink_SplitsOversizedPayload(t *testing.T) {
	metrics, summary := testMetrics()
	cs := newCapturingServer(t, config.CompressionNone)

	conf := httpSinkConfig(cs.server.URL)
	conf.Batch.Timeout = config.Duration(time.Hour)
	// Each encoded event is well over 100 bytes, so every event needs its
	// own request.
	conf.MaxPayloadBytes = 300

	sink := NewHTTPSink("out", conf, logrus.New(), metrics, summary)

	ctx := context.Background()
	require.NoError(t, sink.Start(ctx))

	for i := 0; i < 3; i++ {
		event := events.NewLogEvent("in", strings.Repeat("x", 150), time.Now())
		require.NoError(t, sink.HandleEvent(ctx, event))
	}

	require.NoError(t, sink.Stop(ctx))

	got := cs.waitForEvents(t, 3)
	assert.Len(t, got, 3)
	assert.GreaterOrEqual(t, cs.batchCount(), 3)
}

func TestHTTPSink_DropsOversizedEvent(t *testing.T) {
	metrics, summary := testMetrics()
	cs := newCapturingServer(t, config.CompressionNone)

	conf := httpSinkConfig(cs.server.URL)
	conf.MaxPayloadBytes = 200

	sink := NewHTTPSink("out", conf, logrus.New(), metrics, summary)

	ctx := context.Background()
	require.NoError(t, sink.Start(ctx))

	// This event alone encodes past the payload limit.
	event := events.NewLogEvent("in", strings.Repeat("x", 500), time.Now())
	require.NoError(t, sink.HandleEvent(ctx, event))

	// A normal event still goes through.
	require.NoError(t, sink.HandleEvent(ctx, events.NewLogEvent("in", "small", time.Now())))

	got := cs.waitForEvents(t, 1)
	assert.Equal(t, "small", got[0]["message"])

	require.NoError(t, sink.Stop(ctx))
	assert.Equal(t, uint64(1), summary.GetDroppedEvents())

	_ = metrics
}

func TestHTTPSink_RetriesTransientFailure(t *testing.T) {
	metrics, summary := testMetrics()

	var attempts atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)

			return
		}

		w.WriteHeader(http.StatusAccepted)
	}))

	defer server.Close()

	sink := NewHTTPSink("out", httpSinkConfig(server.URL), logrus.New(), metrics, summary)

	ctx := context.Background()
	require.NoError(t, sink.Start(ctx))

	require.NoError(t, sink.HandleEvent(ctx, events.NewLogEvent("in", "retried", time.Now())))
	require.NoError(t, sink.Stop(ctx))

	assert.Equal(t, int64(3), attempts.Load())
	assert.Equal(t, uint64(1), summary.GetEventsExported())
	assert.Equal(t, uint64(0), summary.GetFailedEvents())
}

func TestHTTPSink_GivesUpAfterMaxAttempts(t *testing.T) {
	metrics, summary := testMetrics()

	var attempts atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))

	defer server.Close()

	sink := NewHTTPSink("out", httpSinkConfig(server.URL), logrus.New(), metrics, summary)

	ctx := context.Background()
	require.NoError(t, sink.Start(ctx))

	require.NoError(t, sink.HandleEvent(ctx, events.NewLogEvent("in", "doomed", time.Now())))
	require.NoError(t, sink.Stop(ctx))

	assert.Equal(t, int64(3), attempts.Load())
	assert.Equal(t, uint64(1), summary.GetFailedEvents())
	assert.Equal(t, uint64(0), summary.GetEventsExported())
}

func TestBuildPayload(t *testing.T) {
	encoded := [][]byte{
		[]byte(`{"a":1}`),
		[]byte(`{"b":2}`),
		[]byte(`{"c":3}`),
	}

	// Large enough limit: everything in one payload.
	payload, n := buildPayload(encoded, 1024)
	assert.Equal(t, 3, n)
	assert.Equal(t, `[{"a":1},{"b":2},{"c":3}]`, string(payload))

	// Tight limit: splits after the first event.
	payload, n = buildPayload(encoded, 12)
	assert.Equal(t, 1, n)
	assert.Equal(t, `[{"a":1}]`, string(payload))
}
