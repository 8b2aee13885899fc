package toolmgr

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Conn is the opaque handle to one connected tool-provider server. The
// supervisor is the only component that creates or closes connections; the
// router borrows them for individual calls.
type Conn interface {
	// ListTools returns the server's full tool catalog in declaration order,
	// following pagination cursors until exhausted.
	ListTools(ctx context.Context) ([]*mcp.Tool, error)
	// CallTool dispatches one tool invocation.
	CallTool(ctx context.Context, params *mcp.CallToolParams) (*mcp.CallToolResult, error)
	// Close tears the connection down. Safe to call more than once.
	Close() error
	// Done is closed when the connection terminates for any reason, including
	// the remote side going away.
	Done() <-chan struct{}
}

// Dialer establishes connections to servers. The built-in implementation
// speaks MCP over stdio or HTTP; tests substitute fakes.
type Dialer interface {
	Dial(ctx context.Context, cfg ServerConfig) (Conn, error)
}

// protocolDialer is the production Dialer backed by the MCP SDK.
type protocolDialer struct {
	clientName    string
	clientVersion string
}

func (d *protocolDialer) Dial(ctx context.Context, cfg ServerConfig) (Conn, error) {
	impl := &mcp.Implementation{
		Name:    d.clientName,
		Version: d.clientVersion,
	}
	switch spec := cfg.Transport.(type) {
	case *StdioTransport:
		transport, err := buildStdioTransport(cfg.Name, spec)
		if err != nil {
			return nil, err
		}
		session, err := mcp.NewClient(impl, nil).Connect(ctx, transport, nil)
		if err != nil {
			return nil, err
		}
		return newProtocolConn(session), nil
	case *HTTPTransport:
		return d.dialHTTP(ctx, impl, cfg.Name, spec)
	case nil:
		return nil, fmt.Errorf("toolmgr: missing transport for %q", cfg.Name)
	default:
		return nil, fmt.Errorf("toolmgr: unsupported transport %T for %q", cfg.Transport, cfg.Name)
	}
}

// dialHTTP tries the Streamable transport first and falls back to legacy SSE,
// unless the configuration prefers SSE outright.
func (d *protocolDialer) dialHTTP(ctx context.Context, impl *mcp.Implementation, name string, spec *HTTPTransport) (Conn, error) {
	if spec.Endpoint == "" {
		return nil, fmt.Errorf("toolmgr: endpoint missing for %q", name)
	}
	httpClient := decorateHTTPClient(spec.HTTPClient, spec.Headers)

	attempt := func(transport mcp.Transport) (*mcp.ClientSession, error) {
		return mcp.NewClient(impl, nil).Connect(ctx, transport, nil)
	}

	streamable := &mcp.StreamableClientTransport{
		Endpoint:   spec.Endpoint,
		HTTPClient: httpClient,
		MaxRetries: spec.MaxRetries,
	}
	sse := &mcp.SSEClientTransport{Endpoint: spec.Endpoint, HTTPClient: httpClient}

	var streamErr error
	if !preferSSE(spec) {
		session, err := attempt(streamable)
		if err == nil {
			return newProtocolConn(session), nil
		}
		streamErr = err
	}
	session, err := attempt(sse)
	if err != nil {
		if streamErr != nil {
			return nil, fmt.Errorf("streamable error: %v; sse error: %w", streamErr, err)
		}
		return nil, err
	}
	return newProtocolConn(session), nil
}

func preferSSE(spec *HTTPTransport) bool {
	if spec.PreferSSE {
		return true
	}
	return strings.HasSuffix(strings.TrimSpace(spec.Endpoint), "/sse")
}

func buildStdioTransport(name string, spec *StdioTransport) (mcp.Transport, error) {
	if spec.Command == "" {
		return nil, fmt.Errorf("toolmgr: command missing for %q", name)
	}
	cmd := exec.Command(spec.Command, spec.Args...)
	if len(spec.Env) > 0 {
		env := os.Environ()
		for k, v := range spec.Env {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
		cmd.Env = env
	}
	return &mcp.CommandTransport{Command: cmd}, nil
}

func decorateHTTPClient(base *http.Client, headers http.Header) *http.Client {
	if base == nil {
		base = http.DefaultClient
	}
	if len(headers) == 0 {
		return base
	}
	clone := *base
	clone.Transport = &headerDecorator{
		next:    defaultRoundTripper(base.Transport),
		headers: cloneHeader(headers),
	}
	return &clone
}

type headerDecorator struct {
	next    http.RoundTripper
	headers http.Header
}

func (d *headerDecorator) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	for k, values := range d.headers {
		req.Header.Del(k)
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	return d.next.RoundTrip(req)
}

func defaultRoundTripper(next http.RoundTripper) http.RoundTripper {
	if next != nil {
		return next
	}
	return http.DefaultTransport
}

func cloneHeader(h http.Header) http.Header {
	if len(h) == 0 {
		return nil
	}
	clone := make(http.Header, len(h))
	for k, values := range h {
		clone[k] = append([]string(nil), values...)
	}
	return clone
}

// protocolConn adapts an SDK client session to the Conn interface. A monitor
// goroutine closes done when the session terminates, so the supervisor learns
// about unsolicited disconnects without polling.
type protocolConn struct {
	session *mcp.ClientSession
	done    chan struct{}
}

func newProtocolConn(session *mcp.ClientSession) *protocolConn {
	c := &protocolConn{session: session, done: make(chan struct{})}
	go func() {
		_ = c.session.Wait()
		close(c.done)
	}()
	return c
}

func (c *protocolConn) ListTools(ctx context.Context) ([]*mcp.Tool, error) {
	res, err := c.session.ListTools(ctx, nil)
	if err != nil {
		return nil, err
	}
	tools := append([]*mcp.Tool{}, res.Tools...)
	cursor := res.NextCursor
	for cursor != "" {
		res, err = c.session.ListTools(ctx, &mcp.ListToolsParams{Cursor: cursor})
		if err != nil {
			return nil, err
		}
		tools = append(tools, res.Tools...)
		cursor = res.NextCursor
	}
	return tools, nil
}

func (c *protocolConn) CallTool(ctx context.Context, params *mcp.CallToolParams) (*mcp.CallToolResult, error) {
	return c.session.CallTool(ctx, params)
}

func (c *protocolConn) Close() error {
	return c.session.Close()
}

func (c *protocolConn) Done() <-chan struct{} {
	return c.done
}
