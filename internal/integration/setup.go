package integration

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	config "github.com/streamsmith/relay/pkg/config/v1"
	"github.com/stretchr/testify/require"

	"github.com/streamsmith/relay/pkg/application"
)

// StartRelay starts a relay instance with the given configuration.
// Returns the application and a cleanup function that drains and stops it.
func StartRelay(t *testing.T, ctx context.Context, cfg *config.Config, debugMode bool) (*application.Application, func()) {
	t.Helper()

	t.Log("Starting relay with test configuration...")

	log := logrus.New()

	if cfg.LogLevel != "" {
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err == nil {
			log.SetLevel(level)
		} else {
			log.SetLevel(logrus.DebugLevel)
		}
	}

	app, err := application.New(application.Options{
		Config: cfg,
		Logger: log.WithField("module", "relay"),
		Debug:  debugMode,
	})
	require.NoError(t, err, "Failed to create application")

	err = app.Start(ctx)
	require.NoError(t, err, "Failed to start application")

	cleanup := func() {
		t.Log("Cleaning up relay...")

		stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)

		defer cancel()

		if err := app.Stop(stopCtx); err != nil {
			t.Logf("Failed to stop application: %v", err)
		}
	}

	return app, cleanup
}
