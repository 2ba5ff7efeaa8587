package events

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Summary is a struct that holds the periodic totals of the agent.
type Summary struct {
	log            logrus.FieldLogger
	printInterval  time.Duration
	sourceEvents   sync.Map
	eventsExported atomic.Uint64
	failedEvents   atomic.Uint64
	droppedEvents  atomic.Uint64
}

// topicCount is a struct that holds the topic and count of a source.
type topicCount struct {
	topic string
	count uint64
}

// NewSummary creates a new summary with the given print interval.
func NewSummary(log logrus.FieldLogger, printInterval time.Duration) *Summary {
	return &Summary{
		log:           log,
		printInterval: printInterval,
	}
}

// Start starts the summary ticker. It blocks until the context is done.
func (s *Summary) Start(ctx context.Context) {
	s.log.WithField("interval", s.printInterval).Info("Starting summary")

	ticker := time.NewTicker(s.printInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Print()
		}
	}
}

// Print prints the summary on interval.
func (s *Summary) Print() {
	events := s.GetSourceEvents()

	// Build a sorted slice of source topics and counts.
	sortedEvents := make([]topicCount, 0, len(events))
	for topic, count := range events {
		sortedEvents = append(sortedEvents, topicCount{topic, count})
	}

	sort.Slice(sortedEvents, func(i, j int) bool {
		return sortedEvents[i].count > sortedEvents[j].count
	})

	// Create formatted strings for each topic and count.
	eventTopics := make([]string, len(sortedEvents))
	for i, tc := range sortedEvents {
		eventTopics[i] = fmt.Sprintf("%s: %d", tc.topic, tc.count)
	}

	sourceEvents := strings.Join(eventTopics, ", ")

	s.log.WithFields(logrus.Fields{
		"events_exported": s.GetEventsExported(),
		"events_failed":   s.GetFailedEvents(),
		"events_dropped":  s.GetDroppedEvents(),
		"source_events":   sourceEvents,
	}).Infof("Summary of the last %s", s.printInterval)

	s.Reset()
}

// AddEventsExported adds the given count to the events exported.
func (s *Summary) AddEventsExported(count uint64) {
	s.eventsExported.Add(count)
}

// GetEventsExported returns the number of events exported.
func (s *Summary) GetEventsExported() uint64 {
	return s.eventsExported.Load()
}

// AddFailedEvents adds the given count to the failed events.
func (s *Summary) AddFailedEvents(count uint64) {
	s.failedEvents.Add(count)
}

// GetFailedEvents returns the number of failed events.
func (s *Summary) GetFailedEvents() uint64 {
	return s.failedEvents.Load()
}

// AddDroppedEvents adds the given count to the dropped events.
func (s *Summary) AddDroppedEvents(count uint64) {
	s.droppedEvents.Add(count)
}

// GetDroppedEvents returns the number of dropped events.
func (s *Summary) GetDroppedEvents() uint64 {
	return s.droppedEvents.Load()
}

// AddSourceEvents adds the given count to the source topic.
func (s *Summary) AddSourceEvents(topic string, count uint64) {
	current, _ := s.sourceEvents.LoadOrStore(topic, uint64(0))

	curr, _ := current.(uint64)

	s.sourceEvents.Store(topic, curr+count)
}

// GetSourceEvents returns the source topics and counts.
func (s *Summary) GetSourceEvents() map[string]uint64 {
	events := make(map[string]uint64)

	s.sourceEvents.Range(func(key, value any) bool {
		events[key.(string)], _ = value.(uint64)

		return true
	})

	return events
}

// Reset resets the summary.
func (s *Summary) Reset() {
	s.eventsExported.Store(0)
	s.failedEvents.Store(0)
	s.droppedEvents.Store(0)
	s.sourceEvents = sync.Map{}
}
