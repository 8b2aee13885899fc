package toolmgr

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Status describes one server connection's position in its lifecycle.
type Status string

const (
	// StatusDisconnected means no live connection exists; a retry may be
	// scheduled.
	StatusDisconnected Status = "disconnected"
	// StatusConnecting means a connection attempt is in progress.
	StatusConnecting Status = "connecting"
	// StatusConnected means the server is live and contributing tools.
	StatusConnected Status = "connected"
	// StatusDegraded means the last health probe failed but the connection
	// has not yet been torn down. Degraded servers contribute no tools.
	StatusDegraded Status = "degraded"
	// StatusClosed is terminal; entered only on shutdown.
	StatusClosed Status = "closed"
)

// supervisor owns the full lifecycle of one server connection: the initial
// connect, periodic health probes, backoff-governed reconnection, and the
// tool cache. All state writes happen on the supervisor's own goroutine;
// everything else reads point-in-time copies via snapshot.
type supervisor struct {
	cfg    ServerConfig
	dialer Dialer
	logger *slog.Logger

	probeInterval  time.Duration
	callTimeout    time.Duration
	connectTimeout time.Duration
	baseDelay      time.Duration
	maxDelay       time.Duration
	probeThreshold int

	attemptOnce sync.Once
	attempted   chan struct{}
	stopped     chan struct{}

	mu          sync.RWMutex
	status      Status
	failures    int // consecutive failed connection attempts
	probeFails  int // consecutive failed probes on the live connection
	lastCheckAt time.Time
	lastLatency time.Duration
	nextRetryAt time.Time
	tools       []*mcp.Tool // published slices are never mutated
	gen         uint64      // bumped on every cache refresh or clear
	conn        Conn
}

// snapshot is an immutable view of a supervisor's state at one instant.
type snapshot struct {
	name        string
	status      Status
	failures    int
	lastCheckAt time.Time
	lastLatency time.Duration
	nextRetryAt time.Time
	tools       []*mcp.Tool
	gen         uint64
}

func newSupervisor(cfg ServerConfig, opts ManagerOptions) *supervisor {
	s := &supervisor{
		cfg:            cfg,
		dialer:         opts.Dialer,
		logger:         opts.Logger,
		probeInterval:  cfg.ProbeInterval,
		callTimeout:    cfg.CallTimeout,
		connectTimeout: cfg.ConnectTimeout,
		baseDelay:      opts.BaseDelay,
		maxDelay:       opts.MaxDelay,
		probeThreshold: opts.ProbeFailureThreshold,
		attempted:      make(chan struct{}),
		stopped:        make(chan struct{}),
		status:         StatusDisconnected,
	}
	if s.probeInterval <= 0 {
		s.probeInterval = opts.ProbeInterval
	}
	if s.callTimeout <= 0 {
		s.callTimeout = opts.CallTimeout
	}
	if s.connectTimeout <= 0 {
		s.connectTimeout = opts.ConnectTimeout
	}
	return s
}

// run is the supervisor's single writer goroutine. It keeps the server
// connected until ctx is cancelled, reconnecting with exponential backoff,
// and exits with the status set to Closed.
func (s *supervisor) run(ctx context.Context) {
	defer close(s.stopped)
	defer s.setClosed()
	// Guarantee startup bookkeeping resolves even when shutdown wins the race
	// against the first attempt.
	defer s.markAttempted()

	if !s.cfg.Enabled {
		// Disabled servers never dial. They stay visible in health output as
		// Disconnected and count as attempted for startup bookkeeping.
		s.markAttempted()
		<-ctx.Done()
		return
	}

	for {
		if ctx.Err() != nil {
			return
		}
		conn, tools, latency, err := s.connectOnce(ctx)
		if err != nil {
			delay := s.recordConnectFailure(err)
			s.markAttempted()
			if ctx.Err() != nil {
				return
			}
			if !sleepCtx(ctx, delay) {
				return
			}
			continue
		}
		s.recordConnected(conn, tools, latency)
		s.markAttempted()
		s.superviseConn(ctx, conn)
	}
}

// connectOnce performs one connection attempt: dial, then list tools so the
// cache is populated before the server is announced as Connected.
func (s *supervisor) connectOnce(ctx context.Context) (Conn, []*mcp.Tool, time.Duration, error) {
	s.setStatus(StatusConnecting)
	attemptCtx, cancel := context.WithTimeout(ctx, s.connectTimeout)
	defer cancel()

	conn, err := s.dialer.Dial(attemptCtx, s.cfg)
	if err != nil {
		return nil, nil, 0, err
	}
	start := time.Now()
	tools, err := conn.ListTools(attemptCtx)
	if err != nil {
		conn.Close()
		return nil, nil, 0, err
	}
	return conn, tools, time.Since(start), nil
}

// superviseConn probes the live connection on this server's own timer until
// the connection dies, the probe failure threshold is reached, or shutdown.
// Probes run inline so they never overlap on one connection.
func (s *supervisor) superviseConn(ctx context.Context, conn Conn) {
	ticker := time.NewTicker(s.probeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			// Shutdown. The connection stays open so in-flight calls can
			// drain; the manager force-closes it when the deadline passes.
			return
		case <-conn.Done():
			s.recordDisconnect(conn, "connection terminated")
			return
		case <-ticker.C:
			if !s.probe(ctx, conn) {
				s.recordDisconnect(conn, "probe failure threshold reached")
				return
			}
		}
	}
}

// probe refreshes the tool cache over the live connection. It reports false
// once consecutive failures reach the threshold, at which point the caller
// tears the connection down.
func (s *supervisor) probe(ctx context.Context, conn Conn) bool {
	probeCtx, cancel := context.WithTimeout(ctx, s.connectTimeout)
	defer cancel()

	start := time.Now()
	tools, err := conn.ListTools(probeCtx)
	latency := time.Since(start)
	if ctx.Err() != nil {
		// Shutdown raced the probe; let superviseConn observe ctx.Done.
		return true
	}
	if err != nil {
		return s.recordProbeFailure(err)
	}
	s.recordProbeSuccess(tools, latency)
	return true
}

// connected returns the live handle when the server is currently Connected.
// The router uses this as its dispatch-time re-check.
func (s *supervisor) connected() (Conn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.status != StatusConnected || s.conn == nil {
		return nil, false
	}
	return s.conn, true
}

func (s *supervisor) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot{
		name:        s.cfg.Name,
		status:      s.status,
		failures:    s.failures,
		lastCheckAt: s.lastCheckAt,
		lastLatency: s.lastLatency,
		nextRetryAt: s.nextRetryAt,
		tools:       s.tools,
		gen:         s.gen,
	}
}

func (s *supervisor) markAttempted() {
	s.attemptOnce.Do(func() { close(s.attempted) })
}

func (s *supervisor) setStatus(status Status) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func (s *supervisor) setClosed() {
	s.mu.Lock()
	s.status = StatusClosed
	s.tools = nil
	s.gen++
	s.mu.Unlock()
}

// closeConn force-closes whatever connection is still held. Called by the
// manager after the shutdown drain completes or its deadline passes.
func (s *supervisor) closeConn() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

func (s *supervisor) recordConnected(conn Conn, tools []*mcp.Tool, latency time.Duration) {
	kept := s.filterTools(tools)
	s.mu.Lock()
	s.status = StatusConnected
	s.failures = 0
	s.probeFails = 0
	s.lastCheckAt = time.Now()
	s.lastLatency = latency
	s.nextRetryAt = time.Time{}
	s.tools = kept
	s.gen++
	s.conn = conn
	s.mu.Unlock()
	s.logger.Info("server connected",
		"server", s.cfg.Name,
		"tools", len(kept),
		"latency", latency)
}

// recordConnectFailure increments the failure counter, schedules the next
// retry, and returns how long to wait before it.
func (s *supervisor) recordConnectFailure(err error) time.Duration {
	cerr := &ConnectionFailedError{Server: s.cfg.Name, Err: err}
	s.mu.Lock()
	s.failures++
	attempt := s.failures
	delay := backoffDelay(s.baseDelay, s.maxDelay, attempt-1)
	s.status = StatusDisconnected
	s.nextRetryAt = time.Now().Add(delay)
	s.mu.Unlock()
	s.logger.Warn("server connection failed",
		"server", s.cfg.Name,
		"consecutive_failures", attempt,
		"retry_in", delay,
		"error", cerr.Err)
	return delay
}

func (s *supervisor) recordProbeSuccess(tools []*mcp.Tool, latency time.Duration) {
	kept := s.filterTools(tools)
	s.mu.Lock()
	recovered := s.status == StatusDegraded
	s.status = StatusConnected
	s.probeFails = 0
	s.lastCheckAt = time.Now()
	s.lastLatency = latency
	s.tools = kept
	s.gen++
	s.mu.Unlock()
	if recovered {
		s.logger.Info("server recovered", "server", s.cfg.Name, "latency", latency)
	}
}

// recordProbeFailure marks the server Degraded and reports whether the
// connection should be kept for another probe round.
func (s *supervisor) recordProbeFailure(err error) bool {
	s.mu.Lock()
	s.probeFails++
	fails := s.probeFails
	s.status = StatusDegraded
	s.lastCheckAt = time.Now()
	s.mu.Unlock()
	s.logger.Warn("health probe failed",
		"server", s.cfg.Name,
		"consecutive_probe_failures", fails,
		"threshold", s.probeThreshold,
		"error", err)
	return fails < s.probeThreshold
}

// recordDisconnect closes the handle and clears the tool cache. The next
// reconnection attempt is immediate; backoff only kicks in once an attempt
// fails.
func (s *supervisor) recordDisconnect(conn Conn, reason string) {
	conn.Close()
	s.mu.Lock()
	s.status = StatusDisconnected
	s.probeFails = 0
	s.nextRetryAt = time.Time{}
	s.tools = nil
	s.gen++
	s.conn = nil
	s.mu.Unlock()
	s.logger.Warn("server disconnected", "server", s.cfg.Name, "reason", reason)
}

func (s *supervisor) filterTools(tools []*mcp.Tool) []*mcp.Tool {
	if len(s.cfg.AllowTools) == 0 && len(s.cfg.DenyTools) == 0 {
		return append([]*mcp.Tool{}, tools...)
	}
	kept := make([]*mcp.Tool, 0, len(tools))
	for _, tool := range tools {
		if tool == nil {
			continue
		}
		if s.cfg.allowsTool(tool.Name) {
			kept = append(kept, tool)
		} else {
			s.logger.Debug("tool filtered", "server", s.cfg.Name, "tool", tool.Name)
		}
	}
	return kept
}
