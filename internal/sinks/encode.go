package sinks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	config "github.com/streamsmith/relay/pkg/config/v1"

	"github.com/streamsmith/relay/internal/events"
)

// encodeEvent renders a single event in the given encoding.
func encodeEvent(event events.Event, encoding string) ([]byte, error) {
	switch encoding {
	case config.EncodingJSON:
		return json.Marshal(events.Encodable(event))
	case config.EncodingText:
		return encodeText(event), nil
	default:
		return nil, fmt.Errorf("unknown encoding %q", encoding)
	}
}

// encodeText renders an event as a single human-readable line:
// timestamp, source, message, then fields in key order.
func encodeText(event events.Event) []byte {
	var buf bytes.Buffer

	buf.WriteString(event.Time().UTC().Format(time.RFC3339))
	buf.WriteByte(' ')
	buf.WriteString(event.Source())
	buf.WriteByte(' ')
	buf.WriteString(event.Message())

	fields := event.Fields()

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(&buf, " %s=%v", k, fields[k])
	}

	return buf.Bytes()
}

// compressPayload applies the configured codec to a request body.
func compressPayload(payload []byte, compression string) ([]byte, error) {
	switch compression {
	case config.CompressionNone:
		return payload, nil
	case config.CompressionGzip:
		var buf bytes.Buffer

		w := gzip.NewWriter(&buf)
		if _, err := w.Write(payload); err != nil {
			return nil, err
		}

		if err := w.Close(); err != nil {
			return nil, err
		}

		return buf.Bytes(), nil
	case config.CompressionZstd:
		var buf bytes.Buffer

		w, err := zstd.NewWriter(&buf)
		if err != nil {
			return nil, err
		}

		if _, err := w.Write(payload); err != nil {
			return nil, err
		}

		if err := w.Close(); err != nil {
			return nil, err
		}

		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown compression %q", compression)
	}
}

// decompressPayload reverses compressPayload. Used in tests.
func decompressPayload(payload []byte, compression string) ([]byte, error) {
	switch compression {
	case config.CompressionNone:
		return payload, nil
	case config.CompressionGzip:
		r, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}

		defer r.Close()

		return io.ReadAll(r)
	case config.CompressionZstd:
		r, err := zstd.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}

		defer r.Close()

		return io.ReadAll(r)
	default:
		return nil, fmt.Errorf("unknown compression %q", compression)
	}
}
