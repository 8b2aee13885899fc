package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vikashloomba/mcp-tool-manager-go/pkg/toolmgr"
)

// Demonstrates embedding the manager directly: connect to a stdio server and
// an HTTP server, print health and the aggregated catalog, optionally invoke
// one tool, then shut down cleanly.
//
// Environment:
//
//	EXAMPLE_STDIO_COMMAND  command line for a stdio server
//	                       (default "npx @modelcontextprotocol/server-everything")
//	EXAMPLE_HTTP_ENDPOINT  endpoint of a Streamable HTTP server (optional)
//	EXAMPLE_CALL_TOOL      name of one catalog tool to invoke (optional)
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var configs []toolmgr.ServerConfig

	command := os.Getenv("EXAMPLE_STDIO_COMMAND")
	if command == "" {
		command = "npx @modelcontextprotocol/server-everything"
	}
	if parts := strings.Fields(command); len(parts) > 0 {
		configs = append(configs, toolmgr.ServerConfig{
			Name:      "local",
			Enabled:   true,
			Transport: &toolmgr.StdioTransport{Command: parts[0], Args: parts[1:]},
		})
	}
	if endpoint := os.Getenv("EXAMPLE_HTTP_ENDPOINT"); endpoint != "" {
		configs = append(configs, toolmgr.ServerConfig{
			Name:      "remote",
			Enabled:   true,
			Transport: &toolmgr.HTTPTransport{Endpoint: endpoint},
		})
	}

	manager := toolmgr.NewManager(configs, &toolmgr.ManagerOptions{
		ClientName:    "manager-example",
		ClientVersion: "1.0.0",
	})
	if err := manager.ConnectAll(ctx); err != nil {
		log.Fatalf("connect: %v", err)
	}

	for _, health := range manager.HealthStatus() {
		fmt.Printf("server %-8s %s\n", health.Name, health.Status)
	}
	for _, tool := range manager.Tools() {
		fmt.Printf("tool %-30s from %s\n", tool.Name, tool.SourceServer)
	}

	if toolName := os.Getenv("EXAMPLE_CALL_TOOL"); toolName != "" {
		res, err := manager.Invoke(ctx, toolName, nil, uuid.NewString())
		if err != nil {
			log.Printf("invoke %s: %v", toolName, err)
		} else {
			for _, content := range res.Content {
				if text, ok := content.(*mcp.TextContent); ok {
					fmt.Println(text.Text)
				}
			}
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := manager.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
