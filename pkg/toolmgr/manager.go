package toolmgr

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ServerHealth is a read-only snapshot of one server's connection state, safe
// to collect concurrently with everything else.
type ServerHealth struct {
	Name          string    `json:"name"`
	Status        Status    `json:"status"`
	LastCheckAt   time.Time `json:"lastCheckAt,omitzero"`
	LatencyMillis int64     `json:"latencyMillis"`
	// ConsecutiveFailures counts failed connection attempts since the last
	// successful connect.
	ConsecutiveFailures int       `json:"consecutiveFailures,omitempty"`
	NextRetryAt         time.Time `json:"nextRetryAt,omitzero"`
}

// Manager maintains connections to a configured set of tool-provider servers,
// aggregates their advertised tools into one catalog, and routes invocations
// to the origin server. Construct it with NewManager, call ConnectAll once at
// startup, and Shutdown on termination.
type Manager struct {
	opts     ManagerOptions
	order    []*supervisor
	byName   map[string]*supervisor
	registry *registry
	router   *router
	inflight *inflightTracker
	logger   *slog.Logger

	runCtx    context.Context
	runCancel context.CancelFunc

	mu       sync.Mutex
	started  bool
	shutdown bool
}

// NewManager builds a Manager for the given server configurations. The slice
// order is significant: it breaks tool-name ties and orders the catalog.
// Invalid or duplicate entries are logged and skipped so that one bad record
// never takes down the rest; a nil or empty slice yields a manager with zero
// servers whose operations all degrade gracefully.
func NewManager(configs []ServerConfig, opts *ManagerOptions) *Manager {
	normalized := opts.withDefaults()
	m := &Manager{
		opts:     normalized,
		byName:   make(map[string]*supervisor),
		inflight: newInflightTracker(),
		logger:   normalized.Logger,
	}
	m.runCtx, m.runCancel = context.WithCancel(context.Background())

	for _, cfg := range configs {
		if err := cfg.validate(); err != nil {
			m.logger.Warn("skipping invalid server config", "error", err)
			continue
		}
		if _, dup := m.byName[cfg.Name]; dup {
			m.logger.Warn("skipping duplicate server config", "server", cfg.Name)
			continue
		}
		sup := newSupervisor(cfg, normalized)
		m.order = append(m.order, sup)
		m.byName[cfg.Name] = sup
	}

	m.registry = &registry{order: m.order, policy: normalized.CollisionPolicy, logger: m.logger}
	m.router = &router{
		registry: m.registry,
		byName:   m.byName,
		schemas:  newSchemaCache(),
		inflight: m.inflight,
		logger:   m.logger,
	}
	return m
}

// ConnectAll starts every supervisor and returns once each enabled server has
// completed its first connection attempt, successfully or not. It never fails
// because a server is unreachable; unreachable servers keep retrying in the
// background. The error is non-nil only when ctx ends before every first
// attempt has resolved, or after Shutdown.
func (m *Manager) ConnectAll(ctx context.Context) error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return fmt.Errorf("toolmgr: manager is shut down")
	}
	if !m.started {
		m.started = true
		for _, sup := range m.order {
			go sup.run(m.runCtx)
		}
	}
	m.mu.Unlock()

	for _, sup := range m.order {
		select {
		case <-sup.attempted:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Tools returns the aggregated catalog: every tool advertised by a currently
// Connected server, in configuration order then declaration order, with name
// collisions settled by the configured policy. Servers in any other state
// contribute nothing.
func (m *Manager) Tools() []ToolDescriptor {
	return m.registry.build().descriptors()
}

// ToolsByServer returns the tools contributed by one server, or nil when the
// server is unknown or not currently Connected.
func (m *Manager) ToolsByServer(serverName string) []ToolDescriptor {
	return m.registry.toolsFor(serverName)
}

// Servers returns the configured server names in configuration order.
func (m *Manager) Servers() []string {
	names := make([]string, len(m.order))
	for i, sup := range m.order {
		names[i] = sup.cfg.Name
	}
	return names
}

// Invoke routes one tool call to the origin server of toolName and returns
// its payload. correlationID is an opaque tracing token: it is logged and
// forwarded, never interpreted. Failures are typed: ToolNotFoundError,
// InvalidArgumentsError, ServerUnavailableError, or InvocationTimeoutError.
func (m *Manager) Invoke(ctx context.Context, toolName string, args map[string]any, correlationID string) (*InvokeResult, error) {
	return m.router.invoke(ctx, toolName, args, correlationID)
}

// HealthStatus reports a point-in-time snapshot per configured server, in
// configuration order.
func (m *Manager) HealthStatus() []ServerHealth {
	out := make([]ServerHealth, 0, len(m.order))
	for _, sup := range m.order {
		snap := sup.snapshot()
		out = append(out, ServerHealth{
			Name:                snap.name,
			Status:              snap.status,
			LastCheckAt:         snap.lastCheckAt,
			LatencyMillis:       snap.lastLatency.Milliseconds(),
			ConsecutiveFailures: snap.failures,
			NextRetryAt:         snap.nextRetryAt,
		})
	}
	return out
}

// ServerHealthFor returns the health snapshot for one server. ok is false
// when no server with that name is configured.
func (m *Manager) ServerHealthFor(serverName string) (ServerHealth, bool) {
	for _, h := range m.HealthStatus() {
		if h.Name == serverName {
			return h, true
		}
	}
	return ServerHealth{}, false
}

// InflightCalls reports how many invocations are currently dispatched and
// awaiting results.
func (m *Manager) InflightCalls() int {
	return m.inflight.count()
}

// Shutdown stops all supervisors, lets in-flight invocations finish until
// ctx's deadline, then force-closes any connection still open. It returns
// ctx's error when the deadline cut the drain short and nil otherwise.
// Shutdown is idempotent: second and later calls return nil immediately.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil
	}
	m.shutdown = true
	started := m.started
	m.mu.Unlock()

	m.logger.Info("manager shutting down", "inflight", m.inflight.count())

	// Stop retry timers, probe tickers, and pending dial attempts. Live
	// connections stay open so in-flight calls can drain.
	m.runCancel()

	drainErr := m.inflight.drain(ctx)
	if drainErr != nil {
		m.logger.Warn("shutdown deadline reached with calls in flight",
			"inflight", m.inflight.count())
	}

	for _, sup := range m.order {
		sup.closeConn()
	}
	if started {
		for _, sup := range m.order {
			select {
			case <-sup.stopped:
			case <-ctx.Done():
			}
		}
	} else {
		// Supervisors never ran; mark them Closed directly.
		for _, sup := range m.order {
			sup.setClosed()
		}
	}
	return drainErr
}
