package toolmgr

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// correlationMetaKey carries the caller's correlation ID to the origin server
// as request metadata. The value is opaque to the router.
const correlationMetaKey = "toolmgr.correlation_id"

// InvokeResult is a completed invocation's payload, returned unchanged from
// the origin server except for the SourceServer tag.
type InvokeResult struct {
	Content           []mcp.Content `json:"content,omitempty"`
	StructuredContent any           `json:"structuredContent,omitempty"`
	// IsError reports a tool-level failure signalled by the provider. It is
	// part of the result, not a transport error.
	IsError      bool   `json:"isError,omitempty"`
	SourceServer string `json:"sourceServer"`
}

// router resolves tool names through the registry and forwards calls to the
// origin server. It never retries a call: reconnection is the supervisor's
// job, and replaying could duplicate a non-idempotent tool's side effects.
type router struct {
	registry *registry
	byName   map[string]*supervisor
	schemas  *schemaCache
	inflight *inflightTracker
	logger   *slog.Logger
}

func (r *router) invoke(ctx context.Context, toolName string, args map[string]any, correlationID string) (*InvokeResult, error) {
	if toolName == "" {
		return nil, &InvalidArgumentsError{Err: errors.New("tool name must not be empty")}
	}

	// One point-in-time catalog read; the result is not re-checked mid-call.
	entry, ok := r.registry.build().lookup(toolName)
	if !ok {
		return nil, &ToolNotFoundError{Tool: toolName}
	}

	if args == nil {
		args = map[string]any{}
	}
	if err := r.validateArgs(entry, args); err != nil {
		return nil, err
	}

	sup := r.byName[entry.server]
	conn, live := sup.connected()
	if !live {
		return nil, &ServerUnavailableError{Server: entry.server, Status: sup.snapshot().status}
	}

	release := r.inflight.register(toolName, entry.server, correlationID)
	defer release()

	timeout := sup.callTimeout
	callCtx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	params := &mcp.CallToolParams{Name: entry.tool.Name, Arguments: args}
	if correlationID != "" {
		params.SetMeta(map[string]any{correlationMetaKey: correlationID})
	}

	start := time.Now()
	res, err := conn.CallTool(callCtx, params)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			r.logger.Warn("tool call timed out",
				"tool", toolName,
				"server", entry.server,
				"timeout", timeout,
				"correlation_id", correlationID)
			return nil, &InvocationTimeoutError{Tool: toolName, Server: entry.server, Timeout: timeout}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		r.logger.Warn("tool call failed",
			"tool", toolName,
			"server", entry.server,
			"correlation_id", correlationID,
			"error", err)
		return nil, &ServerUnavailableError{Server: entry.server, Status: sup.snapshot().status}
	}

	r.logger.Debug("tool call completed",
		"tool", toolName,
		"server", entry.server,
		"correlation_id", correlationID,
		"duration", time.Since(start),
		"is_error", res.IsError)
	return &InvokeResult{
		Content:           res.Content,
		StructuredContent: res.StructuredContent,
		IsError:           res.IsError,
		SourceServer:      entry.server,
	}, nil
}

// validateArgs checks args against the tool's advertised input schema. A
// schema that cannot be compiled is logged and skipped; the origin server's
// own validation remains authoritative in that case.
func (r *router) validateArgs(entry catalogEntry, args map[string]any) error {
	resolved, err := r.schemas.resolve(entry, entry.tool)
	if err != nil {
		r.logger.Warn("input schema unusable, skipping validation",
			"tool", entry.descriptor.Name,
			"server", entry.server,
			"error", err)
		return nil
	}
	if err := resolved.Validate(args); err != nil {
		return &InvalidArgumentsError{Tool: entry.descriptor.Name, Err: err}
	}
	return nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
