package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/vikashloomba/mcp-tool-manager-go/pkg/toolmgr"
)

func newToolsCommand() *cobra.Command {
	var serverName string
	var asJSON bool
	var timeout time.Duration
	var invokeTool string
	var argsJSON string

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Connect once, print the aggregated tool catalog, and exit",
		Long: `tools connects to every configured server, prints the aggregated catalog to
stdout, and disconnects. With --invoke it calls one tool instead and prints
the result.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTools(cmd, serverName, asJSON, timeout, invokeTool, argsJSON)
		},
	}

	cmd.Flags().StringVar(&serverName, "server", "", "Limit the listing to one server")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a plain listing")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Bound on the whole operation")
	cmd.Flags().StringVar(&invokeTool, "invoke", "", "Invoke the named tool instead of listing")
	cmd.Flags().StringVar(&argsJSON, "args", "{}", "JSON arguments for --invoke")

	return cmd
}

func runTools(cmd *cobra.Command, serverName string, asJSON bool, timeout time.Duration, invokeTool, argsJSON string) error {
	logger := loggerFromFlags(cmd)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	manager := toolmgr.NewManager(loadServers(cmd, logger), &toolmgr.ManagerOptions{
		ClientName:    "toolmgrd",
		ClientVersion: version,
		Logger:        logger,
	})
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = manager.Shutdown(shutdownCtx)
	}()

	if err := manager.ConnectAll(ctx); err != nil {
		return fmt.Errorf("connecting to servers: %w", err)
	}

	if invokeTool != "" {
		return invokeOnce(ctx, manager, invokeTool, argsJSON, asJSON)
	}

	var tools []toolmgr.ToolDescriptor
	if serverName != "" {
		tools = manager.ToolsByServer(serverName)
	} else {
		tools = manager.Tools()
	}

	if asJSON {
		encoded, err := json.MarshalIndent(tools, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	}
	if len(tools) == 0 {
		fmt.Println("no tools available")
		return nil
	}
	for _, tool := range tools {
		if tool.Description != "" {
			fmt.Printf("%-30s %-16s %s\n", tool.Name, tool.SourceServer, tool.Description)
		} else {
			fmt.Printf("%-30s %s\n", tool.Name, tool.SourceServer)
		}
	}
	return nil
}

func invokeOnce(ctx context.Context, manager *toolmgr.Manager, toolName, argsJSON string, asJSON bool) error {
	var callArgs map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &callArgs); err != nil {
		return fmt.Errorf("parsing --args: %w", err)
	}

	res, err := manager.Invoke(ctx, toolName, callArgs, uuid.NewString())
	if err != nil {
		return err
	}

	if asJSON {
		encoded, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	}
	if res.IsError {
		fmt.Printf("tool %s reported an error:\n", toolName)
	}
	for _, content := range res.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			fmt.Println(text.Text)
		}
	}
	if res.StructuredContent != nil {
		encoded, err := json.MarshalIndent(res.StructuredContent, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
	}
	return nil
}
