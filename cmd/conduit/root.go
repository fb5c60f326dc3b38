package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/conduit/internal/cli"
	"github.com/aretw0/conduit/internal/config"
	"github.com/aretw0/conduit/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "conduit",
	Short: "Conduit hosts conversational flow extensions",
	Long: `Conduit runs the nodes and knowledge connectors of flow extensions
(CRM, maps, LLMs, document stores) behind an HTTP API, an MCP server or the command line.

Settings come from CONDUIT_* environment variables, optionally loaded from an env file.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("env-file", ".env", "Env file with CONDUIT_* settings (ignored when missing)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (overrides CONDUIT_LOG_LEVEL)")
	rootCmd.PersistentFlags().Bool("debug", false, "Shorthand for --log-level debug")
}

// loadConfig reads the settings and builds the logger. Logs go to stderr so stdout
// stays free for command output and MCP stdio.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.LogLevel = "debug"
	}
	logger := logging.NewWithWriter(os.Stderr, logging.ParseLevel(cfg.LogLevel), cfg.LogJSON)
	return cfg, logger, nil
}

// buildStack loads the settings and wires a host.
func buildStack(ctx context.Context, cmd *cobra.Command) (*cli.Stack, config.Config, *slog.Logger, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	stack, err := cli.BuildHost(ctx, cfg, logger)
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	return stack, cfg, logger, nil
}

// jsonFlag decodes a flag holding a JSON object. An "@path" value reads the file.
func jsonFlag(cmd *cobra.Command, name string, out any) error {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return nil
	}
	data := []byte(raw)
	if raw[0] == '@' {
		var err error
		if data, err = os.ReadFile(raw[1:]); err != nil {
			return fmt.Errorf("--%s: %w", name, err)
		}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("--%s: invalid JSON: %w", name, err)
	}
	return nil
}
