package transforms

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"
	config "github.com/streamsmith/relay/pkg/config/v1"

	"github.com/streamsmith/relay/internal/events"
)

// parseJSONTransform parses a JSON document out of the event and merges its
// keys into the event fields. Events that do not parse pass through
// unchanged; parsing is best-effort enrichment, not validation.
type parseJSONTransform struct {
	name  string
	log   logrus.FieldLogger
	field string
}

// NewParseJSONTransform creates a new parse_json transform.
func NewParseJSONTransform(name string, conf *config.TransformConfig, log logrus.FieldLogger) Transform {
	return &parseJSONTransform{
		name:  name,
		log:   log.WithField("transform", name),
		field: conf.Field,
	}
}

func (t *parseJSONTransform) Start(_ context.Context) error { return nil }
func (t *parseJSONTransform) Stop(_ context.Context) error  { return nil }
func (t *parseJSONTransform) Name() string                  { return t.name }

func (t *parseJSONTransform) Apply(_ context.Context, event *events.LogEvent) (bool, string, error) {
	raw := event.Message()

	if t.field != "" {
		v, ok := event.GetField(t.field)
		if !ok {
			return true, "", nil
		}

		s, ok := v.(string)
		if !ok {
			return true, "", nil
		}

		raw = s
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return true, "", nil
	}

	for k, v := range parsed {
		event.SetField(k, v)
	}

	return true, "", nil
}
