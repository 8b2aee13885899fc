package toolmgr

import (
	"testing"
	"time"
)

func TestServerConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     ServerConfig
		wantErr bool
	}{
		{
			name: "valid stdio",
			cfg:  ServerConfig{Name: "files", Transport: &StdioTransport{Command: "server-files"}},
		},
		{
			name: "valid http",
			cfg:  ServerConfig{Name: "search", Transport: &HTTPTransport{Endpoint: "https://example.com/mcp"}},
		},
		{
			name:    "missing name",
			cfg:     ServerConfig{Transport: &StdioTransport{Command: "server"}},
			wantErr: true,
		},
		{
			name:    "stdio without command",
			cfg:     ServerConfig{Name: "files", Transport: &StdioTransport{}},
			wantErr: true,
		},
		{
			name:    "http without endpoint",
			cfg:     ServerConfig{Name: "search", Transport: &HTTPTransport{}},
			wantErr: true,
		},
		{
			name:    "missing transport",
			cfg:     ServerConfig{Name: "files"},
			wantErr: true,
		},
		{
			name: "invalid allow pattern",
			cfg: ServerConfig{
				Name:       "files",
				Transport:  &StdioTransport{Command: "server-files"},
				AllowTools: []string{"["},
			},
			wantErr: true,
		},
		{
			name: "invalid deny pattern",
			cfg: ServerConfig{
				Name:      "files",
				Transport: &StdioTransport{Command: "server-files"},
				DenyTools: []string{"[!"},
			},
			wantErr: true,
		},
		{
			name: "valid glob patterns",
			cfg: ServerConfig{
				Name:       "files",
				Transport:  &StdioTransport{Command: "server-files"},
				AllowTools: []string{"get_*", "list_{files,dirs}"},
				DenyTools:  []string{"*_secret"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("validate() = %v, expected error: %v", err, tt.wantErr)
			}
		})
	}
}

func TestServerConfigAllowsTool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		allow []string
		deny  []string
		tool  string
		want  bool
	}{
		{name: "no filters admit everything", tool: "anything", want: true},
		{name: "allow match", allow: []string{"get_*"}, tool: "get_weather", want: true},
		{name: "allow miss", allow: []string{"get_*"}, tool: "post_update", want: false},
		{name: "allow exact", allow: []string{"search"}, tool: "search", want: true},
		{name: "deny match", deny: []string{"*_secret"}, tool: "read_secret", want: false},
		{name: "deny miss", deny: []string{"*_secret"}, tool: "read_file", want: true},
		{name: "deny trumps allow", allow: []string{"get_*"}, deny: []string{"get_token"}, tool: "get_token", want: false},
		{name: "allow then deny admits rest", allow: []string{"get_*"}, deny: []string{"get_token"}, tool: "get_weather", want: true},
		{name: "alternation", allow: []string{"{search,fetch}"}, tool: "fetch", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := ServerConfig{AllowTools: tt.allow, DenyTools: tt.deny}
			if got := cfg.allowsTool(tt.tool); got != tt.want {
				t.Fatalf("allowsTool(%q) = %v, expected %v", tt.tool, got, tt.want)
			}
		})
	}
}

func TestConfigHelpersDirect(t *testing.T) {
	t.Parallel()

	stdio := &StdioTransport{
		Command: "npx",
		Args:    []string{"@modelcontextprotocol/server-everything"},
		Env:     map[string]string{"A": "B"},
	}
	http := &HTTPTransport{
		Endpoint:   "https://example",
		MaxRetries: 3,
	}

	if !IsStdio(stdio) || IsHTTP(stdio) {
		t.Fatalf("IsStdio/IsHTTP mismatch for stdio")
	}
	if !IsHTTP(http) || IsStdio(http) {
		t.Fatalf("IsHTTP/IsStdio mismatch for http")
	}

	if TransportOf(stdio) != TransportStdio {
		t.Fatalf("TransportOf(stdio) = %q", TransportOf(stdio))
	}
	if TransportOf(http) != TransportHTTP {
		t.Fatalf("TransportOf(http) = %q", TransportOf(http))
	}
	if TransportOf(nil) != "" {
		t.Fatalf("TransportOf(nil) should be empty")
	}

	if c, ok := AsStdio(stdio); !ok || c.Command != "npx" {
		t.Fatalf("AsStdio failed to narrow stdio: ok=%v cfg=%#v", ok, c)
	}
	if c, ok := AsHTTP(http); !ok || c.Endpoint != "https://example" {
		t.Fatalf("AsHTTP failed to narrow http: ok=%v cfg=%#v", ok, c)
	}
	if c, ok := AsStdio(http); ok || c != nil {
		t.Fatalf("AsStdio(http) should not narrow: ok=%v cfg=%#v", ok, c)
	}
	if c, ok := AsHTTP(stdio); ok || c != nil {
		t.Fatalf("AsHTTP(stdio) should not narrow: ok=%v cfg=%#v", ok, c)
	}
}

func TestPerServerOverridesResolve(t *testing.T) {
	t.Parallel()

	opts := testOptions(newFakeDialer())
	opts.ProbeInterval = 40 * time.Millisecond
	opts.CallTimeout = 7 * time.Second
	opts.ConnectTimeout = 9 * time.Second

	cfg := stdioConfig("alpha")
	cfg.CallTimeout = 2 * time.Second

	sup := newSupervisor(cfg, opts.withDefaults())
	if sup.callTimeout != 2*time.Second {
		t.Fatalf("callTimeout = %v, expected per-server override 2s", sup.callTimeout)
	}
	if sup.probeInterval != 40*time.Millisecond {
		t.Fatalf("probeInterval = %v, expected manager default 40ms", sup.probeInterval)
	}
	if sup.connectTimeout != 9*time.Second {
		t.Fatalf("connectTimeout = %v, expected manager default 9s", sup.connectTimeout)
	}
}
