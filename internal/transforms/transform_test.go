package transforms

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	config "github.com/streamsmith/relay/pkg/config/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamsmith/relay/internal/events"
)

func newEvent(message string) *events.LogEvent {
	return events.NewLogEvent("test", message, time.Now())
}

func TestNew(t *testing.T) {
	log := logrus.New()

	tests := []struct {
		name    string
		conf    *config.TransformConfig
		wantErr bool
	}{
		{name: "parse_json", conf: &config.TransformConfig{Type: config.TransformTypeParseJSON}},
		{name: "filter", conf: &config.TransformConfig{Type: config.TransformTypeFilter, Match: map[string]string{"a": "b"}}},
		{name: "add_fields", conf: &config.TransformConfig{Type: config.TransformTypeAddFields, Fields: map[string]string{"a": "b"}}},
		{name: "sample", conf: &config.TransformConfig{Type: config.TransformTypeSample, Rate: 2}},
		{name: "dedupe", conf: &config.TransformConfig{Type: config.TransformTypeDedupe, TTL: config.Duration(time.Minute)}},
		{name: "throttle", conf: &config.TransformConfig{Type: config.TransformTypeThrottle, Limit: 1, Window: config.Duration(time.Second)}},
		{name: "unknown", conf: &config.TransformConfig{Type: "lua"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := New("t", tt.conf, log)
			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, "t", tr.Name())
		})
	}
}

func TestParseJSON_Message(t *testing.T) {
	tr := NewParseJSONTransform("parse", &config.TransformConfig{Type: config.TransformTypeParseJSON}, logrus.New())
	ctx := context.Background()

	event := newEvent(`{"level": "error", "code": 500}`)

	keep, _, err := tr.Apply(ctx, event)
	require.NoError(t, err)
	assert.True(t, keep)

	level, ok := event.GetField("level")
	assert.True(t, ok)
	assert.Equal(t, "error", level)

	code, ok := event.GetField("code")
	assert.True(t, ok)
	assert.Equal(t, float64(500), code)
}

func TestParseJSON_Field(t *testing.T) {
	tr := NewParseJSONTransform("parse", &config.TransformConfig{
		Type:  config.TransformTypeParseJSON,
		Field: "payload",
	}, logrus.New())
	ctx := context.Background()

	event := newEvent("outer")
	event.SetField("payload", `{"inner": true}`)

	keep, _, err := tr.Apply(ctx, event)
	require.NoError(t, err)
	assert.True(t, keep)

	inner, ok := event.GetField("inner")
	assert.True(t, ok)
	assert.Equal(t, true, inner)
}

func TestParseJSON_Invalid(t *testing.T) {
	tr := NewParseJSONTransform("parse", &config.TransformConfig{Type: config.TransformTypeParseJSON}, logrus.New())

	event := newEvent("not json at all")

	keep, _, err := tr.Apply(context.Background(), event)
	require.NoError(t, err)

	// Unparseable events pass through untouched.
	assert.True(t, keep)
	assert.Empty(t, event.Fields())
}

func TestFilter(t *testing.T) {
	tr := NewFilterTransform("errors_only", &config.TransformConfig{
		Type:  config.TransformTypeFilter,
		Match: map[string]string{"level": "error"},
	}, logrus.New())
	ctx := context.Background()

	matching := newEvent("boom")
	matching.SetField("level", "error")

	keep, _, err := tr.Apply(ctx, matching)
	require.NoError(t, err)
	assert.True(t, keep)

	other := newEvent("fine")
	other.SetField("level", "info")

	keep, reason, err := tr.Apply(ctx, other)
	require.NoError(t, err)
	assert.False(t, keep)
	assert.Equal(t, "filtered", reason)

	// A missing field does not match.
	missing := newEvent("nothing")

	keep, _, err = tr.Apply(ctx, missing)
	require.NoError(t, err)
	assert.False(t, keep)
}

func TestFilter_Invert(t *testing.T) {
	tr := NewFilterTransform("drop_debug", &config.TransformConfig{
		Type:   config.TransformTypeFilter,
		Match:  map[string]string{"level": "debug"},
		Invert: true,
	}, logrus.New())
	ctx := context.Background()

	debug := newEvent("noise")
	debug.SetField("level", "debug")

	keep, _, err := tr.Apply(ctx, debug)
	require.NoError(t, err)
	assert.False(t, keep)

	info := newEvent("signal")
	info.SetField("level", "info")

	keep, _, err = tr.Apply(ctx, info)
	require.NoError(t, err)
	assert.True(t, keep)
}

func TestFilter_NonStringField(t *testing.T) {
	tr := NewFilterTransform("f", &config.TransformConfig{
		Type:  config.TransformTypeFilter,
		Match: map[string]string{"code": "500"},
	}, logrus.New())

	event := newEvent("boom")
	event.SetField("code", 500)

	// Numeric fields compare by their string rendering.
	keep, _, err := tr.Apply(context.Background(), event)
	require.NoError(t, err)
	assert.True(t, keep)
}

func TestAddFields(t *testing.T) {
	tr := NewAddFieldsTransform("enrich", &config.TransformConfig{
		Type:   config.TransformTypeAddFields,
		Fields: map[string]string{"env": "prod", "region": "eu-west-1"},
	}, logrus.New())

	event := newEvent("msg")
	event.SetField("env", "staging")

	keep, _, err := tr.Apply(context.Background(), event)
	require.NoError(t, err)
	assert.True(t, keep)

	env, _ := event.GetField("env")
	assert.Equal(t, "prod", env)

	region, _ := event.GetField("region")
	assert.Equal(t, "eu-west-1", region)
}

func TestSample(t *testing.T) {
	tr := NewSampleTransform("sample", &config.TransformConfig{
		Type: config.TransformTypeSample,
		Rate: 3,
	}, logrus.New())
	ctx := context.Background()

	var kept int

	for i := 0; i < 9; i++ {
		keep, reason, err := tr.Apply(ctx, newEvent("e"))
		require.NoError(t, err)

		if keep {
			kept++
		} else {
			assert.Equal(t, "sampled", reason)
		}
	}

	assert.Equal(t, 3, kept)
}

func TestDedupe(t *testing.T) {
	tr := NewDedupeTransform("dedupe", &config.TransformConfig{
		Type: config.TransformTypeDedupe,
		TTL:  config.Duration(time.Minute),
	}, logrus.New())
	ctx := context.Background()

	require.NoError(t, tr.Start(ctx))

	defer func() {
		require.NoError(t, tr.Stop(ctx))
	}()

	keep, _, err := tr.Apply(ctx, newEvent("same"))
	require.NoError(t, err)
	assert.True(t, keep)

	keep, reason, err := tr.Apply(ctx, newEvent("same"))
	require.NoError(t, err)
	assert.False(t, keep)
	assert.Equal(t, "duplicate", reason)

	keep, _, err = tr.Apply(ctx, newEvent("different"))
	require.NoError(t, err)
	assert.True(t, keep)
}

func TestDedupe_SelectedFields(t *testing.T) {
	tr := NewDedupeTransform("dedupe", &config.TransformConfig{
		Type:         config.TransformTypeDedupe,
		DedupeFields: []string{"request_id"},
		TTL:          config.Duration(time.Minute),
	}, logrus.New())
	ctx := context.Background()

	require.NoError(t, tr.Start(ctx))

	defer func() {
		require.NoError(t, tr.Stop(ctx))
	}()

	a := newEvent("first")
	a.SetField("request_id", "abc")

	b := newEvent("second, but same request")
	b.SetField("request_id", "abc")

	keep, _, err := tr.Apply(ctx, a)
	require.NoError(t, err)
	assert.True(t, keep)

	keep, _, err = tr.Apply(ctx, b)
	require.NoError(t, err)
	assert.False(t, keep)
}

func TestThrottle(t *testing.T) {
	tr := NewThrottleTransform("throttle", &config.TransformConfig{
		Type:   config.TransformTypeThrottle,
		Limit:  2,
		Window: config.Duration(time.Hour),
	}, logrus.New())
	ctx := context.Background()

	var kept int

	for i := 0; i < 5; i++ {
		keep, reason, err := tr.Apply(ctx, newEvent("e"))
		require.NoError(t, err)

		if keep {
			kept++
		} else {
			assert.Equal(t, "throttled", reason)
		}
	}

	assert.Equal(t, 2, kept)
}

func TestThrottle_WindowRollover(t *testing.T) {
	tr := NewThrottleTransform("throttle", &config.TransformConfig{
		Type:   config.TransformTypeThrottle,
		Limit:  1,
		Window: config.Duration(50 * time.Millisecond),
	}, logrus.New())
	ctx := context.Background()

	keep, _, err := tr.Apply(ctx, newEvent("a"))
	require.NoError(t, err)
	assert.True(t, keep)

	keep, _, err = tr.Apply(ctx, newEvent("b"))
	require.NoError(t, err)
	assert.False(t, keep)

	time.Sleep(80 * time.Millisecond)

	keep, _, err = tr.Apply(ctx, newEvent("c"))
	require.NoError(t, err)
	assert.True(t, keep)
}
