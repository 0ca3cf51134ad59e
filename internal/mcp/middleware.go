package mcp

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/noaesperanza/imre/internal/auth"
	"github.com/noaesperanza/imre/internal/transport"
)

// authMiddleware implements bearer token authentication as MCP middleware.
func authMiddleware(resolver auth.Resolver) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			// Skip auth for protocol methods
			if method == "initialize" || method == "ping" || strings.HasPrefix(method, "notifications/") {
				return next(ctx, method, req)
			}

			extra := req.GetExtra()
			if extra == nil || extra.Header == nil {
				return nil, fmt.Errorf("%w: missing headers", auth.ErrUnauthorized)
			}

			header := extra.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if token == "" {
				return nil, fmt.Errorf("%w: missing bearer token", auth.ErrUnauthorized)
			}

			id, err := resolver.Resolve(ctx, token)
			if err != nil {
				return nil, fmt.Errorf("unauthorized: %w", err)
			}
			if id.TenantID == "" {
				return nil, auth.ErrUnauthorized
			}

			return next(auth.WithIdentity(ctx, id), method, req)
		}
	}
}

// noAuthMiddleware injects a default tenant when auth is disabled.
func noAuthMiddleware(defaultTenant string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			ctx = auth.WithIdentity(ctx, auth.Identity{TenantID: defaultTenant})
			return next(ctx, method, req)
		}
	}
}

// actorMiddleware fills in the acting user when the credential carries
// none, from the X-Actor-Ref header (HTTP) or _meta.actor_ref (stdio).
func actorMiddleware() sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			id, ok := auth.FromContext(ctx)
			if !ok || id.ActorRef != "" {
				return next(ctx, method, req)
			}

			extra := req.GetExtra()
			if extra != nil && extra.Header != nil {
				id.ActorRef = strings.TrimSpace(extra.Header.Get(transport.ActorHeader))
			}

			// Some notifications (like "initialized") have nil params, and
			// GetMeta panics on a typed nil.
			if id.ActorRef == "" {
				if params := req.GetParams(); params != nil {
					func() {
						defer func() { recover() }()
						if meta := params.GetMeta(); meta != nil {
							if ref, ok := meta["actor_ref"].(string); ok {
								id.ActorRef = strings.TrimSpace(ref)
							}
						}
					}()
				}
			}

			if id.ActorRef != "" {
				ctx = auth.WithIdentity(ctx, id)
			}
			return next(ctx, method, req)
		}
	}
}
