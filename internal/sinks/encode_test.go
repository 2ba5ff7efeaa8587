package sinks

import (
	"encoding/json"
	"testing"
	"time"

	config "github.com/streamsmith/relay/pkg/config/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamsmith/relay/internal/events"
)

func testEvent() *events.LogEvent {
	event := events.NewLogEvent("app_logs", "hello", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	event.SetField("level", "info")
	event.SetField("code", 200)

	return event
}

func TestEncodeEvent_JSON(t *testing.T) {
	line, err := encodeEvent(testEvent(), config.EncodingJSON)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(line, &decoded))

	assert.Equal(t, "hello", decoded["message"])
	assert.Equal(t, "app_logs", decoded["source"])
	assert.Equal(t, "info", decoded["level"])
	assert.Equal(t, "2024-03-01T12:00:00Z", decoded["timestamp"])
}

func TestEncodeEvent_Text(t *testing.T) {
	line, err := encodeEvent(testEvent(), config.EncodingText)
	require.NoError(t, err)

	// Fields are emitted in key order.
	assert.Equal(t, "2024-03-01T12:00:00Z app_logs hello code=200 level=info", string(line))
}

func TestEncodeEvent_Unknown(t *testing.T) {
	_, err := encodeEvent(testEvent(), "protobuf")
	assert.Error(t, err)
}

func TestCompressPayload_Roundtrip(t *testing.T) {
	payload := []byte(`[{"message":"hello"}]`)

	for _, compression := range []string{config.CompressionNone, config.CompressionGzip, config.CompressionZstd} {
		t.Run(compression, func(t *testing.T) {
			compressed, err := compressPayload(payload, compression)
			require.NoError(t, err)

			decompressed, err := decompressPayload(compressed, compression)
			require.NoError(t, err)
			assert.Equal(t, payload, decompressed)
		})
	}
}

func TestCompressPayload_Unknown(t *testing.T) {
	_, err := compressPayload([]byte("x"), "lz4")
	assert.Error(t, err)
}
