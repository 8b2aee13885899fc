// Package toolmgr maintains connections to a configurable fleet of remote
// tool-provider servers speaking the Model Context Protocol, aggregates their
// advertised tools into one deduplicated catalog, and routes each invocation
// to the server that declared the tool. It layers per-server connection
// supervision, health probing, and backoff-governed reconnection on top of
// the modelcontextprotocol/go-sdk client so callers can treat a whole fleet
// as a single tool surface.
//
// # Core entry points
//
//   - Manager is the long-lived orchestration type. Construct it with
//     NewManager from an ordered []ServerConfig, call ConnectAll once at
//     startup, and Shutdown with a deadline context on termination.
//   - ServerConfig (with the StdioTransport / HTTPTransport variants)
//     declares how each server is launched or contacted; LoadConfig reads an
//     ordered list from a YAML file, tolerating a missing file.
//   - ManagerOptions tune backoff, probe cadence, per-call timeouts, the
//     tool-name collision policy, and logging.
//
// Each configured server is owned by one supervisor goroutine that connects,
// probes on its own timer, and reconnects with exponential backoff. A server
// that never comes up costs nothing but log lines: it simply contributes no
// tools until it recovers. Tools(), Invoke(), and HealthStatus() read
// point-in-time snapshots and are safe to call from any goroutine at any
// point in the manager's life, including before ConnectAll and after
// Shutdown, when they degrade to empty results and typed errors.
//
// Invocation failures are typed (ToolNotFoundError, InvalidArgumentsError,
// ServerUnavailableError, InvocationTimeoutError) and match with errors.As.
// The router never retries a failed call; reconnection happens underneath at
// the connection layer, so a non-idempotent tool is never replayed.
package toolmgr
