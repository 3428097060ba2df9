package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/photojobs/internal/config"
	"github.com/dharsanguruparan/photojobs/internal/logging"
)

var configPath string

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "photojobs: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "photojobs",
		Short: "Operator CLI for the photo library batch jobs",
		Long: `photojobs prepares the database, queues batch jobs for the worker, runs them
in-process for one or more owners, and inspects job records.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Optional YAML config file (environment wins)")
	cmd.AddCommand(
		newMigrateCmd(),
		newEnqueueCmd(),
		newRunCmd(),
		newStatusCmd(),
		newGeocodeCmd(),
	)
	return cmd
}

func loadRuntime() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
