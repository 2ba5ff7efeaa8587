package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	config "github.com/streamsmith/relay/pkg/config/v1"
	"github.com/urfave/cli/v2"
)

// applyConfigOverridesFromFlags applies CLI flags to the config if they are set.
// Environment variables apply first, then CLI flags override them.
func applyConfigOverridesFromFlags(cfg *config.Config, c *cli.Context) error {
	if level := os.Getenv("RELAY_LOG_LEVEL"); level != "" {
		log.Infof("Setting log level from env to %s", level)
		cfg.SetLogLevel(level)
	}

	if c.String("log-level") != "" {
		log.Infof("Overriding log level from CLI to %s", c.String("log-level"))
		cfg.SetLogLevel(c.String("log-level"))
	}

	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return errors.Wrap(err, "invalid log level")
	}

	if addr := os.Getenv("RELAY_METRICS_ADDRESS"); addr != "" {
		log.Infof("Setting metrics address from env to %s", addr)
		cfg.SetMetricsAddress(addr)
	}

	if c.String("metrics-address") != "" {
		log.Infof("Overriding metrics address from CLI to %s", c.String("metrics-address"))
		cfg.SetMetricsAddress(c.String("metrics-address"))
	}

	if addr := os.Getenv("RELAY_PPROF_ADDRESS"); addr != "" {
		log.Infof("Setting pprof address from env to %s", addr)
		cfg.SetPprofAddress(addr)
	}

	if c.String("pprof-address") != "" {
		log.Infof("Overriding pprof address from CLI to %s", c.String("pprof-address"))
		cfg.SetPprofAddress(c.String("pprof-address"))
	}

	if addr := os.Getenv("RELAY_HEALTH_CHECK_ADDRESS"); addr != "" {
		log.Infof("Setting health check address from env to %s", addr)
		cfg.SetHealthCheckAddress(addr)
	}

	if c.String("health-check-address") != "" {
		log.Infof("Overriding health check address from CLI to %s", c.String("health-check-address"))
		cfg.SetHealthCheckAddress(c.String("health-check-address"))
	}

	return nil
}
