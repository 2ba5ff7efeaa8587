package application

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	config "github.com/streamsmith/relay/pkg/config/v1"
)

// testConfigYAML is a minimal topology that runs without touching the network:
// a demo source feeding a blackhole sink, with every server disabled.
const testConfigYAML = `
clock:
  disabled: true
sources:
  gen:
    type: demo
    interval: 10ms
sinks:
  drop:
    type: blackhole
pipelines:
  main:
    sources: [gen]
    sinks: [drop]
`

// TestOptions provides convenient options for creating Applications in tests.
type TestOptions struct {
	// Config to use. If nil, a minimal test config will be created.
	Config *config.Config

	// Logger to use. If nil, a test logger will be created.
	Logger logrus.FieldLogger

	// Debug mode.
	Debug bool
}

// NewTestConfig returns a self-contained config suitable for tests.
func NewTestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.NewFromYAML([]byte(testConfigYAML))
	if err != nil {
		t.Fatalf("Failed to build test config: %v", err)
	}

	return cfg
}

// NewTestApplication creates an Application configured for testing.
// It automatically registers cleanup functions with testing.T.
func NewTestApplication(t *testing.T, opts TestOptions) *Application {
	t.Helper()

	if opts.Config == nil {
		opts.Config = NewTestConfig(t)
	}

	if opts.Logger == nil {
		logger := logrus.New()
		logger.SetLevel(logrus.DebugLevel)
		opts.Logger = logger.WithField("test", t.Name())
	}

	app, err := New(Options{
		Config: opts.Config,
		Logger: opts.Logger,
		Debug:  opts.Debug,
	})
	if err != nil {
		t.Fatalf("Failed to create test application: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := app.Stop(ctx); err != nil {
			t.Logf("Failed to stop application during cleanup: %v", err)
		}
	})

	return app
}

// WaitForHealthy waits for the application to report healthy.
// Returns true if healthy within the timeout, false otherwise.
func (a *Application) WaitForHealthy(ctx context.Context, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(100 * time.Millisecond)

	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if a.IsHealthy() {
				return true
			}

			if time.Now().After(deadline) {
				return false
			}
		}
	}
}
