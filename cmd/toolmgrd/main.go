// Command toolmgrd maintains connections to a configured fleet of tool-provider
// servers, aggregates their tools into one catalog, and serves health, catalog,
// and invocation endpoints over HTTP.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vikashloomba/mcp-tool-manager-go/pkg/toolmgr"
)

var version = "0.1.0"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "toolmgrd",
		Short:   "Tool-provider connection manager",
		Long: `toolmgrd maintains connections to a configured fleet of MCP tool-provider
servers, keeps their health under watch, aggregates their tools into one
catalog, and routes invocations to the right origin server.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "tools.yaml", "Path to the YAML server list")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, or error")
	rootCmd.PersistentFlags().Bool("log-json", false, "Emit JSON log lines instead of text")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newToolsCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the toolmgrd version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("toolmgrd %s\n", version)
		},
	}
}

// loggerFromFlags builds the process logger from the persistent flags. Logs go
// to stderr so command output on stdout stays machine-readable.
func loggerFromFlags(cmd *cobra.Command) *slog.Logger {
	levelName, _ := cmd.Flags().GetString("log-level")
	asJSON, _ := cmd.Flags().GetBool("log-json")

	var level slog.Level
	switch strings.ToLower(levelName) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if asJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// loadServers reads the configured server list, tolerating a missing or partly
// bad file: whatever parsed cleanly is used and the rest is logged.
func loadServers(cmd *cobra.Command, logger *slog.Logger) []toolmgr.ServerConfig {
	path, _ := cmd.Flags().GetString("config")
	configs, err := toolmgr.LoadConfig(path)
	if err != nil {
		logger.Warn("config partially loaded", "path", path, "servers", len(configs), "error", err)
	} else if len(configs) == 0 {
		logger.Warn("no servers configured", "path", path)
	}
	return configs
}
