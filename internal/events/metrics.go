package events

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the metrics for the pipeline components.
type Metrics struct {
	eventsIngestedTotal  *prometheus.CounterVec
	eventsDroppedTotal   *prometheus.CounterVec
	eventsDeliveredTotal *prometheus.CounterVec
	deliveryFailedTotal  *prometheus.CounterVec
	batchSizeEvents      *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		eventsIngestedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_ingested_total",
			Help:      "Total number of events ingested by sources",
		}, []string{"source", "type"}),
		eventsDroppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Total number of events dropped, by component and reason",
		}, []string{"component", "reason"}),
		eventsDeliveredTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_delivered_total",
			Help:      "Total number of events delivered by sinks",
		}, []string{"sink"}),
		deliveryFailedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_failed_total",
			Help:      "Total number of events that failed delivery after retries",
		}, []string{"sink"}),
		batchSizeEvents: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size_events",
			Help:      "Number of events per flushed batch",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"sink"}),
	}

	prometheus.MustRegister(
		m.eventsIngestedTotal,
		m.eventsDroppedTotal,
		m.eventsDeliveredTotal,
		m.deliveryFailedTotal,
		m.batchSizeEvents,
	)

	return m
}

// AddEventsIngested adds ingested events to the metrics.
func (m *Metrics) AddEventsIngested(count int, source, sourceType string) {
	m.eventsIngestedTotal.WithLabelValues(source, sourceType).Add(float64(count))
}

// AddEventsDropped adds dropped events to the metrics.
func (m *Metrics) AddEventsDropped(count int, component, reason string) {
	m.eventsDroppedTotal.WithLabelValues(component, reason).Add(float64(count))
}

// AddEventsDelivered adds delivered events to the metrics.
func (m *Metrics) AddEventsDelivered(count int, sink string) {
	m.eventsDeliveredTotal.WithLabelValues(sink).Add(float64(count))
}

// AddDeliveryFailed adds failed deliveries to the metrics.
func (m *Metrics) AddDeliveryFailed(count int, sink string) {
	m.deliveryFailedTotal.WithLabelValues(sink).Add(float64(count))
}

// ObserveBatchSize records the event count of a flushed batch.
func (m *Metrics) ObserveBatchSize(size int, sink string) {
	m.batchSizeEvents.WithLabelValues(sink).Observe(float64(size))
}
