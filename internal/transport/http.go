package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/noaesperanza/imre/internal/auth"
	"github.com/noaesperanza/imre/internal/metrics"
)

// ErrMethodNotFound is returned by handlers for unknown methods.
var ErrMethodNotFound = errors.New("method not found")

// ErrInvalidParams is returned by handlers when params do not decode.
var ErrInvalidParams = errors.New("invalid params")

// MCPHandler dispatches a JSON-RPC method on behalf of an identity.
type MCPHandler interface {
	Handle(ctx context.Context, id auth.Identity, method string, params json.RawMessage) (any, error)
}

// ErrorMapper converts a handler error into JSON-RPC error data. It returns
// nil for errors it does not recognise.
type ErrorMapper func(error) any

// Options configures the router.
type Options struct {
	// Auth guards /rpc and /mcp. Nil assigns the default identity.
	Auth func(http.Handler) http.Handler
	// RateLimit is applied after authentication. Nil disables limiting.
	RateLimit func(http.Handler) http.Handler
	// MCP serves the streamable MCP endpoint. Nil leaves /mcp unrouted.
	MCP http.Handler
	// MapError supplies structured error data for domain errors.
	MapError ErrorMapper
	// TrustProxy takes the client address from X-Forwarded-For or
	// X-Real-IP. Enable only behind a proxy that sets them.
	TrustProxy bool
}

// Server wires HTTP handlers.
type Server struct {
	handler  MCPHandler
	mapError ErrorMapper
}

// NewServer creates an HTTP server router with middleware.
func NewServer(handler MCPHandler, opts Options) *chi.Mux {
	r := chi.NewRouter()
	if opts.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	srv := &Server{handler: handler, mapError: opts.MapError}

	r.Get("/health", srv.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		if opts.Auth != nil {
			r.Use(opts.Auth)
		} else {
			r.Use(DefaultIdentityMiddleware)
		}
		if opts.RateLimit != nil {
			r.Use(opts.RateLimit)
		}

		r.Post("/rpc", srv.handleRPC)
		if opts.MCP != nil {
			r.Handle("/mcp", opts.MCP)
			r.Handle("/mcp/*", opts.MCP)
		}
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest(r.Body)
	if err != nil {
		code := ErrInvalidReq
		if errors.Is(err, errParse) {
			code = ErrParseCode
		}
		WriteError(w, nil, code, err.Error(), nil)
		return
	}

	id, ok := auth.FromContext(r.Context())
	if !ok || id.TenantID == "" {
		http.Error(w, "missing tenant", http.StatusUnauthorized)
		return
	}

	result, err := s.handler.Handle(r.Context(), id, req.Method, req.Params)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUnauthorized):
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		case errors.Is(err, ErrMethodNotFound):
			WriteError(w, req.ID, ErrMethodNotFoundCode, err.Error(), nil)
		case errors.Is(err, ErrInvalidParams):
			WriteError(w, req.ID, ErrInvalidParamsCode, err.Error(), nil)
		default:
			var data any
			if s.mapError != nil {
				data = s.mapError(err)
			}
			if data != nil {
				WriteError(w, req.ID, ErrApplication, err.Error(), data)
				return
			}
			WriteError(w, req.ID, ErrInternal, err.Error(), nil)
		}
		return
	}

	WriteResult(w, req.ID, result)
}
