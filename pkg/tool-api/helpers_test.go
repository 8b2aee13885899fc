package toolapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vikashloomba/mcp-tool-manager-go/pkg/toolmgr"
)

// stubConn is a scripted toolmgr.Conn for exercising the HTTP layer without a
// live server behind it.
type stubConn struct {
	tools []*mcp.Tool
	call  func(ctx context.Context, params *mcp.CallToolParams) (*mcp.CallToolResult, error)

	once sync.Once
	done chan struct{}
}

func newStubConn(tools ...*mcp.Tool) *stubConn {
	return &stubConn{tools: tools, done: make(chan struct{})}
}

func (c *stubConn) ListTools(ctx context.Context) ([]*mcp.Tool, error) {
	return c.tools, nil
}

func (c *stubConn) CallTool(ctx context.Context, params *mcp.CallToolParams) (*mcp.CallToolResult, error) {
	if c.call != nil {
		return c.call(ctx, params)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: "ok"}},
	}, nil
}

func (c *stubConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *stubConn) Done() <-chan struct{} {
	return c.done
}

// stubDialer serves a fixed connection per server name; servers without one
// are unreachable.
type stubDialer struct {
	mu    sync.Mutex
	conns map[string]toolmgr.Conn
}

func newStubDialer() *stubDialer {
	return &stubDialer{conns: make(map[string]toolmgr.Conn)}
}

func (d *stubDialer) add(name string, conn toolmgr.Conn) {
	d.mu.Lock()
	d.conns[name] = conn
	d.mu.Unlock()
}

func (d *stubDialer) Dial(_ context.Context, cfg toolmgr.ServerConfig) (toolmgr.Conn, error) {
	d.mu.Lock()
	conn := d.conns[cfg.Name]
	d.mu.Unlock()
	if conn == nil {
		return nil, fmt.Errorf("unreachable server %q", cfg.Name)
	}
	return conn, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func stdioServer(name string) toolmgr.ServerConfig {
	return toolmgr.ServerConfig{
		Name:      name,
		Enabled:   true,
		Transport: &toolmgr.StdioTransport{Command: "server-" + name},
	}
}

func schemaTool(name string, required ...string) *mcp.Tool {
	properties := make(map[string]any, len(required))
	requiredAny := make([]any, len(required))
	for i, field := range required {
		properties[field] = map[string]any{"type": "string"}
		requiredAny[i] = field
	}
	return &mcp.Tool{
		Name: name,
		InputSchema: map[string]any{
			"type":       "object",
			"required":   requiredAny,
			"properties": properties,
		},
	}
}

// startTestManager connects a manager around stub connections. A huge backoff
// delay keeps unreachable servers parked after their first failed attempt.
func startTestManager(t *testing.T, dialer toolmgr.Dialer, configs ...toolmgr.ServerConfig) *toolmgr.Manager {
	t.Helper()
	m := toolmgr.NewManager(configs, &toolmgr.ManagerOptions{
		Dialer:        dialer,
		Logger:        discardLogger(),
		BaseDelay:     time.Hour,
		MaxDelay:      2 * time.Hour,
		ProbeInterval: 50 * time.Millisecond,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.ConnectAll(ctx); err != nil {
		t.Fatalf("ConnectAll() = %v, expected nil", err)
	}
	t.Cleanup(func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer shutdownCancel()
		_ = m.Shutdown(shutdownCtx)
	})
	return m
}

func newAPIServer(t *testing.T, m *toolmgr.Manager, opts *Options) *httptest.Server {
	t.Helper()
	if opts == nil {
		opts = &Options{Logger: discardLogger()}
	}
	s, err := NewServer(m, opts)
	if err != nil {
		t.Fatalf("NewServer() = %v, expected nil", err)
	}
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}
