package events

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetrics(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()

	metrics := NewMetrics("test1")
	assert.NotNil(t, metrics)
	assert.NotNil(t, metrics.eventsIngestedTotal)
	assert.NotNil(t, metrics.eventsDroppedTotal)
	assert.NotNil(t, metrics.eventsDeliveredTotal)
}

func TestMetrics_AddEventsIngested(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()

	metrics := NewMetrics("test2")
	metrics.AddEventsIngested(1, "app_logs", "file")
	metrics.AddEventsIngested(2, "app_logs", "file")
	metrics.AddEventsIngested(3, "ingress", "tcp")

	expected := `# HELP test2_events_ingested_total Total number of events ingested by sources
# TYPE test2_events_ingested_total counter
test2_events_ingested_total{source="app_logs",type="file"} 3
test2_events_ingested_total{source="ingress",type="tcp"} 3
`

	assert.NoError(t, testutil.CollectAndCompare(
		metrics.eventsIngestedTotal,
		strings.NewReader(expected),
	))
}

func TestMetrics_AddEventsDropped(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()

	metrics := NewMetrics("test3")
	metrics.AddEventsDropped(1, "dedupe", "duplicate")
	metrics.AddEventsDropped(2, "dedupe", "duplicate")
	metrics.AddEventsDropped(1, "out", "oversized")

	expected := `# HELP test3_events_dropped_total Total number of events dropped, by component and reason
# TYPE test3_events_dropped_total counter
test3_events_dropped_total{component="dedupe",reason="duplicate"} 3
test3_events_dropped_total{component="out",reason="oversized"} 1
`

	assert.NoError(t, testutil.CollectAndCompare(
		metrics.eventsDroppedTotal,
		strings.NewReader(expected),
	))
}

func TestMetrics_Delivery(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()

	metrics := NewMetrics("test4")
	metrics.AddEventsDelivered(5, "out")
	metrics.AddDeliveryFailed(1, "out")

	expectedDelivered := `# HELP test4_events_delivered_total Total number of events delivered by sinks
# TYPE test4_events_delivered_total counter
test4_events_delivered_total{sink="out"} 5
`

	assert.NoError(t, testutil.CollectAndCompare(
		metrics.eventsDeliveredTotal,
		strings.NewReader(expectedDelivered),
	))

	expectedFailed := `# HELP test4_delivery_failed_total Total number of events that failed delivery after retries
# TYPE test4_delivery_failed_total counter
test4_delivery_failed_total{sink="out"} 1
`

	assert.NoError(t, testutil.CollectAndCompare(
		metrics.deliveryFailedTotal,
		strings.NewReader(expectedFailed),
	))
}
