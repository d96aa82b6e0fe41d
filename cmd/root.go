package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go-socket-hub/internal/infrastructure/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "socket-hub",
	Short: "socket-hub shares upstream WebSocket and event-stream connections among many clients",
	Long: `socket-hub keeps at most one upstream connection per endpoint URL and fans its
events out to every downstream SSE or WebSocket client attached to it.

Configuration is read from the file given by --config (or ` + config.EnvConfig + `),
then overridden by SOCKETHUB_* environment variables.`,
	// Running without a subcommand serves.
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway HTTP server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate the configuration, then exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadAndValidate(resolveConfigPath())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(),
			"config ok: addr=%s reconnect_attempts=%d reconnect_interval=%s heartbeat=%s/%s metrics=%t\n",
			cfg.Server.Addr,
			cfg.Hub.ReconnectAttempts,
			cfg.Hub.ReconnectInterval,
			cfg.Hub.Heartbeat.Interval,
			cfg.Hub.Heartbeat.Timeout,
			cfg.Metrics.Enabled,
		)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to the YAML config file (default $"+config.EnvConfig+")")
	rootCmd.AddCommand(serveCmd, validateCmd)
}

func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return os.Getenv(config.EnvConfig)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadAndValidate(resolveConfigPath())
	if err != nil {
		return err
	}

	app := newApplication(cfg)
	return app.Run(WithSignal(cmd.Context()))
}
