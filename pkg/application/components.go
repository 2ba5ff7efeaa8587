package application

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	config "github.com/streamsmith/relay/pkg/config/v1"

	"github.com/streamsmith/relay/internal/clockdrift"
	"github.com/streamsmith/relay/internal/sinks"
	"github.com/streamsmith/relay/internal/sources"
	"github.com/streamsmith/relay/internal/transforms"
)

// initClock initializes the clock service if not already provided.
// The service keeps event timestamps honest by tracking NTP drift.
func (a *Application) initClock(ctx context.Context) error {
	if a.clock != nil {
		return nil
	}

	if a.config.Clock.Disabled {
		a.clock = clockdrift.SystemClock{}
		a.log.Info("Clock drift syncing disabled, using system clock")

		return nil
	}

	service := clockdrift.NewService(a.log, &clockdrift.Config{
		NTPServer:    a.config.Clock.NTPServer,
		SyncInterval: a.config.Clock.SyncInterval.Duration(),
	})

	if err := service.Start(ctx); err != nil {
		return err
	}

	a.clock = service
	a.ownClock = service
	a.log.Info("Clock drift service initialized")

	return nil
}

// initComponents builds every source, transform and sink named in the
// configuration. Components are constructed up front so a bad config fails
// Start before anything begins moving events.
func (a *Application) initComponents() error {
	for name, conf := range a.config.Sources {
		src, err := sources.New(name, conf, a.log, a.clock)
		if err != nil {
			return fmt.Errorf("failed to create source %s: %w", name, err)
		}

		a.sources[name] = src
	}

	for name, conf := range a.config.Transforms {
		tr, err := transforms.New(name, conf, a.log)
		if err != nil {
			return fmt.Errorf("failed to create transform %s: %w", name, err)
		}

		a.transforms[name] = tr
	}

	for name, conf := range a.config.Sinks {
		if a.debug {
			// Debug mode forces every sink to the console so the stream is
			// visible regardless of the configured outputs.
			conf = &config.SinkConfig{
				Type:     config.SinkTypeConsole,
				Encoding: conf.Encoding,
			}
		}

		sink, err := sinks.New(name, conf, a.log, a.metrics, a.summary)
		if err != nil {
			return fmt.Errorf("failed to create sink %s: %w", name, err)
		}

		a.sinks[name] = sink
	}

	if a.debug {
		a.log.Info("Using console sinks (debug mode)")
	}

	a.log.WithFields(logrus.Fields{
		"sources":    len(a.sources),
		"transforms": len(a.transforms),
		"sinks":      len(a.sinks),
	}).Info("Components initialized")

	return nil
}
