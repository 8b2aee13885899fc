package toolapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vikashloomba/mcp-tool-manager-go/pkg/toolmgr"
)

// invokeRequest is the POST /invoke body.
type invokeRequest struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

// invokeResponse mirrors toolmgr.InvokeResult plus the correlation ID the
// request was traced under.
type invokeResponse struct {
	Content           []mcp.Content `json:"content,omitempty"`
	StructuredContent any           `json:"structuredContent,omitempty"`
	IsError           bool          `json:"isError,omitempty"`
	SourceServer      string        `json:"sourceServer"`
	CorrelationID     string        `json:"correlationId"`
}

type errorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.HealthStatus())
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	var tools []toolmgr.ToolDescriptor
	if server := r.URL.Query().Get("server"); server != "" {
		tools = s.manager.ToolsByServer(server)
	} else {
		tools = s.manager.Tools()
	}
	if tools == nil {
		// Always a JSON array, never null.
		tools = []toolmgr.ToolDescriptor{}
	}
	writeJSON(w, http.StatusOK, tools)
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	correlationID := correlationIDFrom(r.Context())

	var req invokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, correlationID, http.StatusBadRequest, "bad_request",
			fmt.Errorf("decoding request body: %w", err))
		return
	}

	res, err := s.manager.Invoke(r.Context(), req.Tool, req.Arguments, correlationID)
	if err != nil {
		status, code := invokeErrorStatus(err)
		s.writeError(w, correlationID, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, invokeResponse{
		Content:           res.Content,
		StructuredContent: res.StructuredContent,
		IsError:           res.IsError,
		SourceServer:      res.SourceServer,
		CorrelationID:     correlationID,
	})
}

// invokeErrorStatus maps the manager's typed invocation failures onto HTTP
// statuses and stable machine-readable codes.
func invokeErrorStatus(err error) (int, string) {
	var (
		notFound    *toolmgr.ToolNotFoundError
		invalidArgs *toolmgr.InvalidArgumentsError
		unavailable *toolmgr.ServerUnavailableError
		timeout     *toolmgr.InvocationTimeoutError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound, "tool_not_found"
	case errors.As(err, &invalidArgs):
		return http.StatusBadRequest, "invalid_arguments"
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable, "server_unavailable"
	case errors.As(err, &timeout):
		return http.StatusGatewayTimeout, "invocation_timeout"
	default:
		return http.StatusBadGateway, "upstream_error"
	}
}

func (s *Server) writeError(w http.ResponseWriter, correlationID string, status int, code string, err error) {
	s.opts.Logger.Warn("request failed",
		"status", status,
		"code", code,
		"correlation_id", correlationID,
		"error", err)
	writeJSON(w, status, errorResponse{
		Error:         code,
		Message:       err.Error(),
		CorrelationID: correlationID,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
