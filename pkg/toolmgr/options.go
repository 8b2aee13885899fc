package toolmgr

import (
	"log/slog"
	"time"
)

// Defaults applied by ManagerOptions.withDefaults.
const (
	defaultBaseDelay             = 1 * time.Second
	defaultMaxDelay              = 60 * time.Second
	defaultProbeInterval         = 30 * time.Second
	defaultProbeFailureThreshold = 3
	defaultCallTimeout           = 30 * time.Second
	defaultConnectTimeout        = 30 * time.Second
)

// ManagerOptions configures a Manager instance.
type ManagerOptions struct {
	// ClientName is the client name advertised to servers during the
	// protocol handshake. Defaults to "toolmgr".
	ClientName string
	// ClientVersion is the semantic version reported to servers.
	ClientVersion string
	// BaseDelay seeds the reconnection backoff. The delay after n consecutive
	// failures is min(BaseDelay*2^n, MaxDelay) with ±20% jitter. Defaults to 1s.
	BaseDelay time.Duration
	// MaxDelay caps the reconnection backoff. Defaults to 60s.
	MaxDelay time.Duration
	// ProbeInterval is the pause between health probes on a connected server.
	// Each server runs its own timer. Defaults to 30s.
	ProbeInterval time.Duration
	// ProbeFailureThreshold is the number of consecutive failed probes after
	// which a Degraded server is torn down and reconnected. Defaults to 3.
	ProbeFailureThreshold int
	// CallTimeout bounds each dispatched tool invocation. Defaults to 30s.
	CallTimeout time.Duration
	// ConnectTimeout bounds each connection attempt, including the initial
	// tool listing. Defaults to 30s.
	ConnectTimeout time.Duration
	// CollisionPolicy resolves duplicate tool names across servers when the
	// catalog is built. Defaults to FirstWins.
	CollisionPolicy CollisionPolicy
	// Dialer establishes connections. A nil value uses the built-in protocol
	// dialer; tests substitute fakes.
	Dialer Dialer
	// Logger receives structured diagnostics.
	Logger *slog.Logger
}

func (o *ManagerOptions) withDefaults() ManagerOptions {
	if o == nil {
		o = &ManagerOptions{}
	}
	opts := *o
	if opts.ClientName == "" {
		opts.ClientName = "toolmgr"
	}
	if opts.ClientVersion == "" {
		opts.ClientVersion = "0.1.0"
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = defaultBaseDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = defaultMaxDelay
	}
	if opts.ProbeInterval <= 0 {
		opts.ProbeInterval = defaultProbeInterval
	}
	if opts.ProbeFailureThreshold <= 0 {
		opts.ProbeFailureThreshold = defaultProbeFailureThreshold
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaultCallTimeout
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	if opts.CollisionPolicy == nil {
		opts.CollisionPolicy = FirstWins{}
	}
	if opts.Dialer == nil {
		opts.Dialer = &protocolDialer{
			clientName:    opts.ClientName,
			clientVersion: opts.ClientVersion,
		}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return opts
}
