package toolmgr

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// ServerConfig declares one upstream tool-provider server. Configurations are
// supplied once, in order, when the Manager is constructed and are never
// re-read afterwards; treat them as immutable.
type ServerConfig struct {
	// Name uniquely identifies the server. It is stable across restarts and
	// appears in health snapshots, catalog entries, and error values.
	Name string
	// Enabled controls whether the manager ever dials this server. Disabled
	// servers still appear in health output (permanently Disconnected) but
	// never contribute tools.
	Enabled bool
	// Transport describes how to reach the server. See StdioTransport and
	// HTTPTransport.
	Transport TransportSpec

	// AllowTools and DenyTools filter the tools a server may contribute to
	// the aggregated catalog. Entries are doublestar glob patterns matched
	// against tool names. An empty AllowTools admits everything; DenyTools
	// is applied after AllowTools.
	AllowTools []string
	DenyTools  []string

	// ProbeInterval overrides ManagerOptions.ProbeInterval for this server.
	ProbeInterval time.Duration
	// CallTimeout overrides ManagerOptions.CallTimeout for this server.
	CallTimeout time.Duration
	// ConnectTimeout overrides ManagerOptions.ConnectTimeout for this server.
	ConnectTimeout time.Duration
}

// validate reports configuration problems that make the entry unusable. The
// manager skips invalid entries rather than failing construction.
func (c ServerConfig) validate() error {
	if c.Name == "" {
		return fmt.Errorf("toolmgr: server config missing name")
	}
	switch t := c.Transport.(type) {
	case *StdioTransport:
		if t.Command == "" {
			return fmt.Errorf("toolmgr: server %q: stdio transport requires a command", c.Name)
		}
	case *HTTPTransport:
		if t.Endpoint == "" {
			return fmt.Errorf("toolmgr: server %q: http transport requires an endpoint", c.Name)
		}
	case nil:
		return fmt.Errorf("toolmgr: server %q: missing transport", c.Name)
	default:
		return fmt.Errorf("toolmgr: server %q: unsupported transport %T", c.Name, c.Transport)
	}
	for _, pattern := range append(append([]string{}, c.AllowTools...), c.DenyTools...) {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("toolmgr: server %q: invalid tool filter pattern %q", c.Name, pattern)
		}
	}
	return nil
}

// allowsTool reports whether the server's filters admit the given tool name.
func (c ServerConfig) allowsTool(name string) bool {
	if len(c.AllowTools) > 0 {
		admitted := false
		for _, pattern := range c.AllowTools {
			if ok, err := doublestar.Match(pattern, name); err == nil && ok {
				admitted = true
				break
			}
		}
		if !admitted {
			return false
		}
	}
	for _, pattern := range c.DenyTools {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return false
		}
	}
	return true
}

// TransportSpec is implemented by all transport-specific configurations.
type TransportSpec interface {
	transportSpec()
}

// StdioTransport launches the server as a subprocess and speaks the tool
// protocol over its stdin/stdout.
type StdioTransport struct {
	Command string
	Args    []string
	// Env entries are merged over the parent process environment.
	Env map[string]string
}

func (*StdioTransport) transportSpec() {}

// HTTPTransport reaches a server over Streamable HTTP, or legacy SSE when
// PreferSSE is set.
type HTTPTransport struct {
	Endpoint string
	// Headers are attached to every outbound request.
	Headers http.Header
	// HTTPClient overrides the client used for requests. A nil value uses a
	// default client; Headers are honored either way.
	HTTPClient *http.Client
	// MaxRetries bounds the Streamable transport's internal reconnection
	// attempts. Zero keeps the transport default.
	MaxRetries int
	PreferSSE  bool
}

func (*HTTPTransport) transportSpec() {}
