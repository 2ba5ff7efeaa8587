package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	config "github.com/streamsmith/relay/pkg/config/v1"
	"github.com/urfave/cli/v2"

	"github.com/streamsmith/relay/internal/relay"
	"github.com/streamsmith/relay/pkg/application"
)

var log = logrus.New()

const shutdownTimeout = 15 * time.Second

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    relay.ImplementationLower(),
		Usage:   "Routes observability events from sources through transforms to sinks",
		Version: relay.Short(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config file path",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "route every sink to the console",
			},
			&cli.BoolFlag{
				Name:  "release",
				Usage: "print the release version and exit",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "override the configured log level",
			},
			&cli.StringFlag{
				Name:  "metrics-address",
				Usage: "override the configured metrics address",
			},
			&cli.StringFlag{
				Name:  "pprof-address",
				Usage: "override the configured pprof address",
			},
			&cli.StringFlag{
				Name:  "health-check-address",
				Usage: "override the configured health check address",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "validate",
				Usage: "check the config file and print the resolved topology",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "config file path",
					},
				},
				Action: validateAction,
			},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	if c.Bool("release") {
		fmt.Println(relay.Full())

		return nil
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	log.SetLevel(level)

	log.WithFields(logrus.Fields{
		"version":   relay.Full(),
		"pipelines": len(cfg.Pipelines),
	}).Info("Starting relay")

	app, err := application.New(application.Options{
		Config: cfg,
		Logger: log.WithField("module", "relay"),
		Debug:  c.Bool("debug"),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down")
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()

	return app.Stop(stopCtx)
}

func validateAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	fmt.Printf("configuration ok: %d sources, %d transforms, %d sinks, %d pipelines\n",
		len(cfg.Sources), len(cfg.Transforms), len(cfg.Sinks), len(cfg.Pipelines))

	return nil
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		path = os.Getenv("RELAY_CONFIG")
	}

	if path == "" {
		return nil, errors.New("a config file is required, pass one with --config")
	}

	cfg, err := config.NewFromPath(path)
	if err != nil {
		return nil, err
	}

	if err := applyConfigOverridesFromFlags(cfg, c); err != nil {
		return nil, err
	}

	return cfg, nil
}
