// ABOUTME: Root Cobra command for the drivewatch CLI.
// ABOUTME: Opens config, logging, storage, and alert publishers via PersistentPre/PostRunE.
package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/harperreed/drivewatch/internal/config"
	"github.com/harperreed/drivewatch/internal/logging"
	"github.com/harperreed/drivewatch/internal/models"
	"github.com/harperreed/drivewatch/internal/notify"
	"github.com/harperreed/drivewatch/internal/service"
	"github.com/harperreed/drivewatch/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app holds everything a command needs for one invocation.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	repo   storage.Repository
	hub    *notify.Hub
	redis  *notify.RedisPublisher
	svc    *service.Service
}

var cli *app

var rootCmd = &cobra.Command{
	Use:   "drivewatch",
	Short: "Driver fatigue monitoring",
	Long: `Drivewatch scores driver drowsiness, tracks driving sessions, and raises
fatigue alerts.

QUICK START:

  $ drivewatch driver register jdoe --email jdoe@example.com --vehicle truck
  $ drivewatch session start jdoe --location Depot
  $ drivewatch assess jdoe --eye 10 --blink 5 --head down --yawn --hours 7
  $ drivewatch session end jdoe --location Port --distance 160
  $ drivewatch stats jdoe

Drivers can be referenced by username, full ID, or an ID prefix.

SERVERS:

  $ drivewatch serve     # HTTP API with a websocket alert stream
  $ drivewatch mcp       # Model Context Protocol server on stdio

CONFIGURATION:

  Settings are read from ~/.config/drivewatch/config.json, then a .env file
  in the working directory, then DRIVEWATCH_* environment variables
  (DRIVEWATCH_BACKEND, DRIVEWATCH_DATA_DIR, DRIVEWATCH_POSTGRES_URL,
  DRIVEWATCH_REDIS_ADDR, DRIVEWATCH_LOG_LEVEL, ...).

  Backends: sqlite (default), badger, postgres.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		var err error
		cli, err = openApp(cmd.Context())
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeApp()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func openApp(ctx context.Context) (*app, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.GetLogLevel(), cfg.GetLogFormat())
	if err != nil {
		return nil, err
	}

	repo, err := cfg.OpenStorage(ctx)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, repo: repo, hub: notify.NewHub(logger.Named("hub"))}
	publishers := notify.Multi{a.hub}
	if cfg.RedisAddr != "" {
		a.redis, err = notify.NewRedisPublisher(ctx, cfg.RedisAddr, cfg.GetRedisChannel())
		if err != nil {
			logger.Warn("redis alerts disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			publishers = append(publishers, a.redis)
		}
	}

	a.svc = service.New(repo, publishers, logger)
	return a, nil
}

func closeApp() error {
	if cli == nil {
		return nil
	}
	a := cli
	cli = nil

	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, a.repo.Close())
	_ = a.logger.Sync()
	return errors.Join(errs...)
}

// resolveDriver looks a driver up by username, ID, or ID prefix.
func resolveDriver(cmd *cobra.Command, ref string) (*models.Driver, error) {
	return cli.svc.ResolveDriver(cmd.Context(), ref)
}

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the drivewatch version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "drivewatch "+version)
		},
	})
}

const version = "1.0.0"
