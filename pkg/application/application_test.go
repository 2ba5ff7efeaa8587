package application

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	config "github.com/streamsmith/relay/pkg/config/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig(t *testing.T) *config.Config {
	t.Helper()

	return NewTestConfig(t)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		opts    func(t *testing.T) Options
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid configuration",
			opts: func(t *testing.T) Options {
				return Options{
					Config: validTestConfig(t),
					Logger: logrus.New(),
				}
			},
			wantErr: false,
		},
		{
			name: "missing configuration",
			opts: func(t *testing.T) Options {
				return Options{}
			},
			wantErr: true,
			errMsg:  "configuration is required",
		},
		{
			name: "invalid configuration",
			opts: func(t *testing.T) Options {
				return Options{
					Config: &config.Config{},
				}
			},
			wantErr: true,
			errMsg:  "no pipelines configured",
		},
		{
			name: "nil logger creates default",
			opts: func(t *testing.T) Options {
				return Options{
					Config: validTestConfig(t),
				}
			},
			wantErr: false,
		},
		{
			name: "debug mode enabled",
			opts: func(t *testing.T) Options {
				return Options{
					Config: validTestConfig(t),
					Debug:  true,
				}
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts(t)

			app, err := New(opts)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.Nil(t, app)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, app)
				assert.NotNil(t, app.config)
				assert.NotNil(t, app.log)
				assert.NotNil(t, app.servers)
				assert.Equal(t, opts.Debug, app.debug)
			}
		})
	}
}

func TestApplicationGetters(t *testing.T) {
	cfg := validTestConfig(t)

	app, err := New(Options{
		Config: cfg,
	})
	require.NoError(t, err)

	assert.Equal(t, cfg, app.Config())
	assert.NotNil(t, app.Logger())
	assert.NotNil(t, app.Servers())
	assert.Nil(t, app.Router())
	assert.Nil(t, app.Metrics())
	assert.False(t, app.IsHealthy())
}

func TestStartStop(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()

	app := NewTestApplication(t, TestOptions{})
	ctx := context.Background()

	require.NoError(t, app.Start(ctx))
	assert.True(t, app.IsHealthy())
	assert.NotNil(t, app.Router())
	assert.NotNil(t, app.Metrics())
	assert.NotNil(t, app.Summary())

	// The demo source ticks every 10ms; give it a few cycles.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, app.Stop(ctx))
	assert.False(t, app.IsHealthy())

	assert.NotZero(t, app.Summary().GetEventsExported())
}

func TestStartTwice(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()

	app := NewTestApplication(t, TestOptions{})
	ctx := context.Background()

	require.NoError(t, app.Start(ctx))

	err := app.Start(ctx)
	assert.ErrorIs(t, err, ErrAlreadyStarted)

	require.NoError(t, app.Stop(ctx))
}

func TestStopWithoutStart(t *testing.T) {
	app, err := New(Options{Config: validTestConfig(t)})
	require.NoError(t, err)

	assert.NoError(t, app.Stop(context.Background()))
}

func TestGetHealthStatus(t *testing.T) {
	app, err := New(Options{Config: validTestConfig(t)})
	require.NoError(t, err)

	status := app.GetHealthStatus()
	assert.False(t, status.Healthy)
	require.Contains(t, status.Pipelines, "main")
	assert.Equal(t, []string{"gen"}, status.Pipelines["main"].Sources)
	assert.Equal(t, []string{"drop"}, status.Pipelines["main"].Sinks)
}

func TestDebugModeForcesConsoleSinks(t *testing.T) {
	prometheus.DefaultRegisterer = prometheus.NewRegistry()

	cfg := validTestConfig(t)
	app, err := New(Options{Config: cfg, Debug: true})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))

	defer func() {
		require.NoError(t, app.Stop(ctx))
	}()

	require.Contains(t, app.sinks, "drop")
	assert.Equal(t, "drop", app.sinks["drop"].Name())
}
