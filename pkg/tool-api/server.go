package toolapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/cors"

	"github.com/vikashloomba/mcp-tool-manager-go/pkg/toolmgr"
)

// Server is the HTTP boundary in front of a toolmgr.Manager. It serves three
// routes: GET /healthz, GET /tools, and POST /invoke. The manager's lifecycle
// stays with the caller; Shutdown here stops only the HTTP side.
type Server struct {
	manager *toolmgr.Manager
	opts    Options
	handler http.Handler

	httpServerMu sync.Mutex
	httpServer   *http.Server
}

// NewServer builds the HTTP boundary for a manager.
func NewServer(manager *toolmgr.Manager, opts *Options) (*Server, error) {
	if manager == nil {
		return nil, fmt.Errorf("toolapi: manager is required")
	}
	s := &Server{manager: manager, opts: opts.withDefaults()}
	s.handler = s.mountHandler()
	return s, nil
}

// Handler exposes the fully wrapped HTTP handler, for tests or for mounting
// under an existing server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) mountHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /tools", s.handleTools)
	mux.HandleFunc("POST /invoke", s.handleInvoke)

	corsWrapper := cors.New(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", correlationHeader},
		ExposedHeaders: []string{correlationHeader},
	})
	return chainMiddleware(mux,
		recoverMiddleware(s.opts.Logger),
		requestLogMiddleware(s.opts.Logger),
		correlationMiddleware,
		corsWrapper.Handler,
	)
}

// ListenAndServe runs an HTTP server until the provided context is cancelled
// or the server stops.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.httpServerMu.Lock()
	if s.httpServer != nil {
		srv := s.httpServer
		s.httpServerMu.Unlock()
		return fmt.Errorf("toolapi: server already running on %s", srv.Addr)
	}
	srv := &http.Server{Addr: s.opts.Addr, Handler: s.handler}
	s.httpServer = srv
	s.httpServerMu.Unlock()
	defer func() {
		s.httpServerMu.Lock()
		if s.httpServer == srv {
			s.httpServer = nil
		}
		s.httpServerMu.Unlock()
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownGrace)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown stops the embedded HTTP server if it is running. It does not touch
// the manager; the caller owns that ordering.
func (s *Server) Shutdown(ctx context.Context) error {
	s.httpServerMu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.httpServerMu.Unlock()
	if srv == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return srv.Shutdown(ctx)
}
