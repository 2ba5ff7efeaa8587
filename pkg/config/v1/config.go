// Package config defines the declarative pipeline configuration: sources,
// transforms, sinks and the pipelines that wire them together.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// Component type names accepted in the configuration.
const (
	SourceTypeFile  = "file"
	SourceTypeTCP   = "tcp"
	SourceTypeStdin = "stdin"
	SourceTypeHTTP  = "http"
	SourceTypeDemo  = "demo"

	TransformTypeParseJSON = "parse_json"
	TransformTypeFilter    = "filter"
	TransformTypeAddFields = "add_fields"
	TransformTypeSample    = "sample"
	TransformTypeDedupe    = "dedupe"
	TransformTypeThrottle  = "throttle"

	SinkTypeConsole   = "console"
	SinkTypeFile      = "file"
	SinkTypeHTTP      = "http"
	SinkTypeBlackhole = "blackhole"
)

// Compression codecs accepted by the http sink.
const (
	CompressionNone = "none"
	CompressionGzip = "gzip"
	CompressionZstd = "zstd"
)

// Encodings accepted by the console and file sinks.
const (
	EncodingJSON = "json"
	EncodingText = "text"
)

// Common errors returned during config validation.
var (
	ErrNoPipelines      = errors.New("no pipelines configured")
	ErrUnknownComponent = errors.New("pipeline references unknown component")
	ErrEmptyPipeline    = errors.New("pipeline must have at least one source and one sink")
)

// Duration is a time.Duration that unmarshals from YAML strings like "500ms"
// or "5m". Plain integers are taken as nanoseconds.
type Duration time.Duration

// Duration returns the value as a time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("invalid duration %q: %w", s, perr)
		}

		*d = Duration(parsed)

		return nil
	}

	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}

	*d = Duration(n)

	return nil
}

// Config is the root agent configuration.
type Config struct {
	LogLevel           string   `yaml:"log_level" default:"info"`
	MetricsAddress     string   `yaml:"metrics_address"`
	PprofAddress       string   `yaml:"pprof_address"`
	HealthCheckAddress string   `yaml:"health_check_address"`
	BufferSize         int      `yaml:"buffer_size" default:"1024"`
	SummaryInterval    Duration `yaml:"summary_interval" default:"30s"`

	Clock ClockConfig `yaml:"clock"`

	Sources    map[string]*SourceConfig    `yaml:"sources"`
	Transforms map[string]*TransformConfig `yaml:"transforms"`
	Sinks      map[string]*SinkConfig      `yaml:"sinks"`
	Pipelines  map[string]*PipelineConfig  `yaml:"pipelines"`
}

// ClockConfig controls NTP-based timestamp adjustment.
type ClockConfig struct {
	// Disabled turns NTP syncing off; the system clock is used as-is.
	Disabled     bool     `yaml:"disabled"`
	NTPServer    string   `yaml:"ntp_server" default:"pool.ntp.org"`
	SyncInterval Duration `yaml:"sync_interval" default:"5m"`
}

// SourceConfig configures a single source. Which fields apply depends on Type.
type SourceConfig struct {
	Type string `yaml:"type"`

	// file
	Path          string `yaml:"path"`
	ReadFromStart bool   `yaml:"read_from_start"`

	// tcp, http
	Address string `yaml:"address"`

	// demo
	Interval Duration `yaml:"interval" default:"1s"`
}

// TransformConfig configures a single transform. Which fields apply depends on Type.
type TransformConfig struct {
	Type string `yaml:"type"`

	// parse_json: field holding the JSON document; empty means the raw message.
	Field string `yaml:"field"`

	// filter: events whose fields match are kept, or dropped when Invert is set.
	Match  map[string]string `yaml:"match"`
	Invert bool              `yaml:"invert"`

	// add_fields
	Fields map[string]string `yaml:"fields"`

	// sample: keep 1 out of Rate events.
	Rate int `yaml:"rate"`

	// dedupe
	DedupeFields []string `yaml:"dedupe_fields"`
	TTL          Duration `yaml:"ttl" default:"5m"`

	// throttle: at most Limit events per Window.
	Limit  int      `yaml:"limit"`
	Window Duration `yaml:"window" default:"1s"`
}

// SinkConfig configures a single sink. Which fields apply depends on Type.
type SinkConfig struct {
	Type string `yaml:"type"`

	// console, file
	Encoding string `yaml:"encoding" default:"json"`

	// file
	Path string `yaml:"path"`

	// http
	Address         string            `yaml:"address"`
	Headers         map[string]string `yaml:"headers"`
	Compression     string            `yaml:"compression" default:"none"`
	MaxPayloadBytes int               `yaml:"max_payload_bytes" default:"4194304"`
	Batch           BatchConfig       `yaml:"batch"`
	Retry           RetryConfig       `yaml:"retry"`
}

// BatchConfig controls sink batching.
type BatchConfig struct {
	MaxEvents int      `yaml:"max_events" default:"500"`
	MaxBytes  int      `yaml:"max_bytes" default:"1048576"`
	Timeout   Duration `yaml:"timeout" default:"1s"`
}

// RetryConfig controls sink delivery retries.
type RetryConfig struct {
	MaxAttempts    int      `yaml:"max_attempts" default:"3"`
	InitialBackoff Duration `yaml:"initial_backoff" default:"500ms"`
	MaxBackoff     Duration `yaml:"max_backoff" default:"30s"`
}

// PipelineConfig wires source IDs through an ordered transform chain into sink IDs.
type PipelineConfig struct {
	Sources    []string `yaml:"sources"`
	Transforms []string `yaml:"transforms"`
	Sinks      []string `yaml:"sinks"`
}

// NewFromPath loads, applies defaults to and validates a config file.
func NewFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return NewFromYAML(data)
}

// NewFromYAML parses, applies defaults to and validates raw YAML config.
func NewFromYAML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply config defaults: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks component configs and the pipeline topology.
func (c *Config) Validate() error {
	for id, src := range c.Sources {
		if err := src.validate(); err != nil {
			return fmt.Errorf("source %q: %w", id, err)
		}
	}

	for id, tr := range c.Transforms {
		if err := tr.validate(); err != nil {
			return fmt.Errorf("transform %q: %w", id, err)
		}
	}

	for id, snk := range c.Sinks {
		if err := snk.validate(); err != nil {
			return fmt.Errorf("sink %q: %w", id, err)
		}
	}

	if len(c.Pipelines) == 0 {
		return ErrNoPipelines
	}

	for id, p := range c.Pipelines {
		if len(p.Sources) == 0 || len(p.Sinks) == 0 {
			return fmt.Errorf("pipeline %q: %w", id, ErrEmptyPipeline)
		}

		for _, ref := range p.Sources {
			if _, ok := c.Sources[ref]; !ok {
				return fmt.Errorf("pipeline %q: source %q: %w", id, ref, ErrUnknownComponent)
			}
		}

		for _, ref := range p.Transforms {
			if _, ok := c.Transforms[ref]; !ok {
				return fmt.Errorf("pipeline %q: transform %q: %w", id, ref, ErrUnknownComponent)
			}
		}

		for _, ref := range p.Sinks {
			if _, ok := c.Sinks[ref]; !ok {
				return fmt.Errorf("pipeline %q: sink %q: %w", id, ref, ErrUnknownComponent)
			}
		}
	}

	return nil
}

func (s *SourceConfig) validate() error {
	switch s.Type {
	case SourceTypeFile:
		if s.Path == "" {
			return errors.New("file source requires a path")
		}
	case SourceTypeTCP, SourceTypeHTTP:
		if s.Address == "" {
			return fmt.Errorf("%s source requires an address", s.Type)
		}
	case SourceTypeStdin, SourceTypeDemo:
	default:
		return fmt.Errorf("unknown source type %q", s.Type)
	}

	return nil
}

func (t *TransformConfig) validate() error {
	switch t.Type {
	case TransformTypeParseJSON, TransformTypeAddFields, TransformTypeDedupe:
	case TransformTypeFilter:
		if len(t.Match) == 0 {
			return errors.New("filter transform requires match fields")
		}
	case TransformTypeSample:
		if t.Rate < 1 {
			return errors.New("sample transform requires a rate of at least 1")
		}
	case TransformTypeThrottle:
		if t.Limit < 1 {
			return errors.New("throttle transform requires a limit of at least 1")
		}
	default:
		return fmt.Errorf("unknown transform type %q", t.Type)
	}

	return nil
}

func (s *SinkConfig) validate() error {
	switch s.Type {
	case SinkTypeConsole, SinkTypeBlackhole:
	case SinkTypeFile:
		if s.Path == "" {
			return errors.New("file sink requires a path")
		}
	case SinkTypeHTTP:
		if s.Address == "" {
			return errors.New("http sink requires an address")
		}
	default:
		return fmt.Errorf("unknown sink type %q", s.Type)
	}

	switch s.Encoding {
	case EncodingJSON, EncodingText:
	default:
		return fmt.Errorf("unknown encoding %q", s.Encoding)
	}

	switch s.Compression {
	case CompressionNone, CompressionGzip, CompressionZstd:
	default:
		return fmt.Errorf("unknown compression %q", s.Compression)
	}

	return nil
}

// SetLogLevel sets the log level.
func (c *Config) SetLogLevel(level string) {
	c.LogLevel = level
}

// SetMetricsAddress sets the metrics server address.
func (c *Config) SetMetricsAddress(address string) {
	c.MetricsAddress = address
}

// SetPprofAddress sets the pprof server address.
func (c *Config) SetPprofAddress(address string) {
	c.PprofAddress = address
}

// SetHealthCheckAddress sets the health check server address.
func (c *Config) SetHealthCheckAddress(address string) {
	c.HealthCheckAddress = address
}
