package toolmgr

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// fakeConn is a scripted Conn. The list and call hooks override the default
// behavior of returning the static tool set and a trivial success result.
// Close closes done, the same signal a real session emits when it ends.
type fakeConn struct {
	tools []*mcp.Tool
	list  func(ctx context.Context) ([]*mcp.Tool, error)
	call  func(ctx context.Context, params *mcp.CallToolParams) (*mcp.CallToolResult, error)

	closeOnce sync.Once
	done      chan struct{}

	listCalls atomic.Int64
	callCalls atomic.Int64
}

func newFakeConn(tools ...*mcp.Tool) *fakeConn {
	return &fakeConn{tools: tools, done: make(chan struct{})}
}

func (c *fakeConn) ListTools(ctx context.Context) ([]*mcp.Tool, error) {
	c.listCalls.Add(1)
	if c.list != nil {
		return c.list(ctx)
	}
	return c.tools, nil
}

func (c *fakeConn) CallTool(ctx context.Context, params *mcp.CallToolParams) (*mcp.CallToolResult, error) {
	c.callCalls.Add(1)
	if c.call != nil {
		return c.call(ctx, params)
	}
	return &mcp.CallToolResult{}, nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *fakeConn) Done() <-chan struct{} { return c.done }

func (c *fakeConn) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// fakeDialer scripts connection outcomes per server name and counts dial
// attempts.
type fakeDialer struct {
	mu      sync.Mutex
	scripts map[string]func() (Conn, error)
	dials   map[string]int
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{
		scripts: make(map[string]func() (Conn, error)),
		dials:   make(map[string]int),
	}
}

func (d *fakeDialer) serve(server string, conn Conn) {
	d.serveFunc(server, func() (Conn, error) { return conn, nil })
}

func (d *fakeDialer) fail(server string, err error) {
	d.serveFunc(server, func() (Conn, error) { return nil, err })
}

func (d *fakeDialer) serveFunc(server string, fn func() (Conn, error)) {
	d.mu.Lock()
	d.scripts[server] = fn
	d.mu.Unlock()
}

func (d *fakeDialer) Dial(_ context.Context, cfg ServerConfig) (Conn, error) {
	d.mu.Lock()
	d.dials[cfg.Name]++
	fn := d.scripts[cfg.Name]
	d.mu.Unlock()
	if fn == nil {
		return nil, fmt.Errorf("no script for server %q", cfg.Name)
	}
	return fn()
}

func (d *fakeDialer) dialCount(server string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials[server]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testOptions shrinks the timing knobs so lifecycle transitions resolve in
// milliseconds instead of seconds.
func testOptions(d Dialer) *ManagerOptions {
	return &ManagerOptions{
		BaseDelay:     5 * time.Millisecond,
		MaxDelay:      50 * time.Millisecond,
		ProbeInterval: 10 * time.Millisecond,
		Dialer:        d,
		Logger:        discardLogger(),
	}
}

func stdioConfig(name string) ServerConfig {
	return ServerConfig{
		Name:      name,
		Enabled:   true,
		Transport: &StdioTransport{Command: "server-" + name},
	}
}

func tool(name string) *mcp.Tool {
	return &mcp.Tool{Name: name}
}

// connectedSupervisor fabricates a supervisor frozen in the Connected state
// without ever starting its run loop. conn may be nil to model a handle that
// was already torn down.
func connectedSupervisor(cfg ServerConfig, conn Conn, tools ...*mcp.Tool) *supervisor {
	opts := testOptions(newFakeDialer()).withDefaults()
	sup := newSupervisor(cfg, opts)
	sup.status = StatusConnected
	sup.tools = tools
	sup.gen = 1
	sup.conn = conn
	return sup
}

func startManager(t *testing.T, m *Manager) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.ConnectAll(ctx); err != nil {
		t.Fatalf("ConnectAll() = %v, expected nil", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = m.Shutdown(ctx)
	})
}

func waitForStatus(t *testing.T, m *Manager, server string, want Status) {
	t.Helper()
	waitFor(t, fmt.Sprintf("server %q to reach status %q", server, want), func() bool {
		for _, h := range m.HealthStatus() {
			if h.Name == server && h.Status == want {
				return true
			}
		}
		return false
	})
}

func waitForTools(t *testing.T, m *Manager, want []string) {
	t.Helper()
	waitFor(t, fmt.Sprintf("catalog to equal %v", want), func() bool {
		return reflect.DeepEqual(toolNames(m.Tools()), want)
	})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ticker := time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()
	for {
		if cond() {
			return
		}
		select {
		case <-ctx.Done():
			t.Fatalf("timed out waiting for %s", what)
		case <-ticker.C:
		}
	}
}

func toolNames(descriptors []ToolDescriptor) []string {
	names := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		names = append(names, d.Name)
	}
	return names
}

func healthFor(t *testing.T, m *Manager, server string) ServerHealth {
	t.Helper()
	h, ok := m.ServerHealthFor(server)
	if !ok {
		t.Fatalf("ServerHealthFor(%q) reports no such server", server)
	}
	return h
}
