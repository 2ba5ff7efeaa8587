package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/hashstructure/v2"
)

// TypeLog is the event type carried by LogEvent.
const TypeLog = "log"

// Clock provides the time used to stamp events at ingest. It is satisfied
// by the clockdrift service so that event timestamps are NTP-adjusted.
type Clock interface {
	// Now returns the current time adjusted for clock drift.
	Now() time.Time
}

// Event is the unit of data that moves through a pipeline. Sources create
// events, transforms mutate them, sinks deliver them. Once an event has been
// handed to a sink it must be treated as read-only: the same instance may be
// fanned out to several sinks.
type Event interface {
	// ID returns the unique identifier of the event.
	ID() string
	// Type returns the kind of event, "log" for log events.
	Type() string
	// Source returns the configured ID of the source that produced the event.
	Source() string
	// Time returns the time of the event.
	Time() time.Time
	// Message returns the raw message line of the event.
	Message() string
	// Fields returns the structured fields of the event.
	Fields() map[string]any
}

// LogEvent is the concrete event carried through pipelines. It holds the raw
// message as received from the origin plus a mutable field map populated by
// transforms.
type LogEvent struct {
	id      string
	source  string
	time    time.Time
	message string
	fields  map[string]any
}

// NewLogEvent creates a log event stamped with the given time.
func NewLogEvent(source, message string, ts time.Time) *LogEvent {
	return &LogEvent{
		id:      uuid.New().String(),
		source:  source,
		time:    ts,
		message: message,
		fields:  make(map[string]any),
	}
}

func (e *LogEvent) ID() string             { return e.id }
func (e *LogEvent) Type() string           { return TypeLog }
func (e *LogEvent) Source() string         { return e.source }
func (e *LogEvent) Time() time.Time        { return e.time }
func (e *LogEvent) Message() string        { return e.message }
func (e *LogEvent) Fields() map[string]any { return e.fields }

// SetMessage replaces the raw message line.
func (e *LogEvent) SetMessage(message string) {
	e.message = message
}

// SetTime replaces the event timestamp.
func (e *LogEvent) SetTime(ts time.Time) {
	e.time = ts
}

// SetField sets a structured field on the event.
func (e *LogEvent) SetField(key string, value any) {
	e.fields[key] = value
}

// GetField returns a structured field and whether it was present.
func (e *LogEvent) GetField(key string) (any, bool) {
	v, ok := e.fields[key]

	return v, ok
}

// DeleteField removes a structured field from the event.
func (e *LogEvent) DeleteField(key string) {
	delete(e.fields, key)
}

// Clone returns an independent copy of the event with its own field map.
// The copy keeps the original ID so a fanned-out event stays correlatable
// across pipelines.
func (e *LogEvent) Clone() *LogEvent {
	fields := make(map[string]any, len(e.fields))
	for k, v := range e.fields {
		fields[k] = v
	}

	return &LogEvent{
		id:      e.id,
		source:  e.source,
		time:    e.time,
		message: e.message,
		fields:  fields,
	}
}

// Fingerprint returns a stable hash over the named fields of the event. When
// no fields are given the hash covers the message and all fields. Used by the
// dedupe transform to detect duplicates.
func Fingerprint(e Event, fields []string) (uint64, error) {
	if len(fields) == 0 {
		return hashstructure.Hash(struct {
			Message string
			Fields  map[string]any
		}{e.Message(), e.Fields()}, hashstructure.FormatV2, nil)
	}

	selected := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := e.Fields()[f]; ok {
			selected[f] = v
		}
	}

	return hashstructure.Hash(selected, hashstructure.FormatV2, nil)
}

// Encodable returns the flat representation of an event used by the json
// encodings of the console, file and http sinks.
func Encodable(e Event) map[string]any {
	out := make(map[string]any, len(e.Fields())+3)
	for k, v := range e.Fields() {
		out[k] = v
	}

	out["message"] = e.Message()
	out["source"] = e.Source()
	out["timestamp"] = e.Time().UTC().Format(time.RFC3339Nano)

	return out
}
