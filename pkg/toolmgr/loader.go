package toolmgr

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk configuration shape: an ordered sequence of
// server entries. Order is significant and preserved.
type fileConfig struct {
	Servers []fileServer `yaml:"servers"`
}

type fileServer struct {
	Name       string        `yaml:"name"`
	Enabled    *bool         `yaml:"enabled"`
	Transport  fileTransport `yaml:"transport"`
	AllowTools []string      `yaml:"allowTools"`
	DenyTools  []string      `yaml:"denyTools"`
	// Durations are Go duration strings, for example "30s" or "1m".
	ProbeInterval  string `yaml:"probeInterval"`
	CallTimeout    string `yaml:"callTimeout"`
	ConnectTimeout string `yaml:"connectTimeout"`
}

type fileTransport struct {
	// Type is "stdio" or "http". When omitted it is inferred from which of
	// command or endpoint is set.
	Type       string            `yaml:"type"`
	Command    string            `yaml:"command"`
	Args       []string          `yaml:"args"`
	Env        map[string]string `yaml:"env"`
	Endpoint   string            `yaml:"endpoint"`
	Headers    map[string]string `yaml:"headers"`
	PreferSSE  bool              `yaml:"preferSSE"`
	MaxRetries int               `yaml:"maxRetries"`
}

// LoadConfig reads an ordered server list from a YAML file. A missing file is
// not an error: it yields zero servers, and every manager operation degrades
// gracefully from there. A file that cannot be parsed at all yields zero
// servers plus the parse error. Entries that parse but cannot be converted
// are skipped; the returned error then describes the skipped entries while
// the remaining ones are still returned, so one bad record never discards
// the rest.
func LoadConfig(path string) ([]ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("toolmgr: read config %q: %w", path, err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("toolmgr: parse config %q: %w", path, err)
	}

	var (
		configs []ServerConfig
		errs    []error
	)
	for i, entry := range file.Servers {
		cfg, err := entry.toServerConfig()
		if err != nil {
			errs = append(errs, fmt.Errorf("toolmgr: config entry %d (%q): %w", i, entry.Name, err))
			continue
		}
		configs = append(configs, cfg)
	}
	return configs, errors.Join(errs...)
}

func (f fileServer) toServerConfig() (ServerConfig, error) {
	cfg := ServerConfig{
		Name:       f.Name,
		Enabled:    f.Enabled == nil || *f.Enabled,
		AllowTools: f.AllowTools,
		DenyTools:  f.DenyTools,
	}

	transport, err := f.Transport.toSpec()
	if err != nil {
		return ServerConfig{}, err
	}
	cfg.Transport = transport

	for _, field := range []struct {
		raw string
		dst *time.Duration
	}{
		{f.ProbeInterval, &cfg.ProbeInterval},
		{f.CallTimeout, &cfg.CallTimeout},
		{f.ConnectTimeout, &cfg.ConnectTimeout},
	} {
		if field.raw == "" {
			continue
		}
		d, err := time.ParseDuration(field.raw)
		if err != nil {
			return ServerConfig{}, fmt.Errorf("invalid duration %q: %w", field.raw, err)
		}
		*field.dst = d
	}
	return cfg, nil
}

func (t fileTransport) toSpec() (TransportSpec, error) {
	kind := t.Type
	if kind == "" {
		switch {
		case t.Command != "":
			kind = "stdio"
		case t.Endpoint != "":
			kind = "http"
		}
	}
	switch kind {
	case "stdio":
		return &StdioTransport{Command: t.Command, Args: t.Args, Env: t.Env}, nil
	case "http":
		var headers http.Header
		if len(t.Headers) > 0 {
			headers = make(http.Header, len(t.Headers))
			for k, v := range t.Headers {
				headers.Set(k, v)
			}
		}
		return &HTTPTransport{
			Endpoint:   t.Endpoint,
			Headers:    headers,
			PreferSSE:  t.PreferSSE,
			MaxRetries: t.MaxRetries,
		}, nil
	case "":
		return nil, errors.New("transport requires a type, command, or endpoint")
	default:
		return nil, fmt.Errorf("unsupported transport type %q", kind)
	}
}
