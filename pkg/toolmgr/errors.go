package toolmgr

import (
	"fmt"
	"time"
)

// ConnectionFailedError reports a failed connection attempt. It is recovered
// internally by the reconnection loop and reaches callers only through logs
// and health snapshots, never from Invoke.
type ConnectionFailedError struct {
	Server string
	Err    error
}

func (e *ConnectionFailedError) Error() string {
	return fmt.Sprintf("toolmgr: connection to server %q failed: %v", e.Server, e.Err)
}

func (e *ConnectionFailedError) Unwrap() error { return e.Err }

// ToolNotFoundError indicates the requested tool is absent from the current
// aggregated catalog. The router performs no network activity before
// returning it.
type ToolNotFoundError struct {
	Tool string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("toolmgr: tool %q not found in catalog", e.Tool)
}

// ServerUnavailableError indicates the tool's origin server was no longer
// Connected when the call was dispatched. The router never retries; the
// connection layer owns recovery.
type ServerUnavailableError struct {
	Server string
	Status Status
}

func (e *ServerUnavailableError) Error() string {
	return fmt.Sprintf("toolmgr: server %q unavailable (status %s)", e.Server, e.Status)
}

// InvocationTimeoutError indicates a dispatched call exceeded its deadline.
// The underlying connection is left for the next scheduled probe to judge.
type InvocationTimeoutError struct {
	Tool    string
	Server  string
	Timeout time.Duration
}

func (e *InvocationTimeoutError) Error() string {
	return fmt.Sprintf("toolmgr: invocation of %q on server %q exceeded %s", e.Tool, e.Server, e.Timeout)
}

// InvalidArgumentsError indicates the call arguments were rejected before
// dispatch, either by schema validation or basic input constraints.
type InvalidArgumentsError struct {
	Tool string
	Err  error
}

func (e *InvalidArgumentsError) Error() string {
	return fmt.Sprintf("toolmgr: invalid arguments for tool %q: %v", e.Tool, e.Err)
}

func (e *InvalidArgumentsError) Unwrap() error { return e.Err }
