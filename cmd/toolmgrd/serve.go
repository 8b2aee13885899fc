package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	toolapi "github.com/vikashloomba/mcp-tool-manager-go/pkg/tool-api"
	"github.com/vikashloomba/mcp-tool-manager-go/pkg/toolmgr"
)

func newServeCommand() *cobra.Command {
	var addr string
	var origins []string
	var shutdownTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Connect to all configured servers and serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, addr, origins, shutdownTimeout)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8710", "HTTP listen address")
	cmd.Flags().StringSliceVar(&origins, "allowed-origins", nil, "CORS allowed origins (default allows all)")
	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 10*time.Second, "Bound on the graceful drain during shutdown")

	return cmd
}

func runServe(cmd *cobra.Command, addr string, origins []string, shutdownTimeout time.Duration) error {
	logger := loggerFromFlags(cmd)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager := toolmgr.NewManager(loadServers(cmd, logger), &toolmgr.ManagerOptions{
		ClientName:    "toolmgrd",
		ClientVersion: version,
		Logger:        logger,
	})
	if err := manager.ConnectAll(ctx); err != nil {
		return fmt.Errorf("initial connection round: %w", err)
	}

	api, err := toolapi.NewServer(manager, &toolapi.Options{
		Addr:           addr,
		AllowedOrigins: origins,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	logger.Info("serving tool manager API",
		"addr", addr,
		"servers", len(manager.Servers()),
		"tools", len(manager.Tools()))
	serveErr := api.ListenAndServe(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown deadline reached before drain completed", "error", err)
	}

	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		return serveErr
	}
	return nil
}
