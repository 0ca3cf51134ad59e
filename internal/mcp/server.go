package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/noaesperanza/imre/internal/auth"
	"github.com/noaesperanza/imre/internal/domain/activity"
	"github.com/noaesperanza/imre/internal/domain/catalog"
	"github.com/noaesperanza/imre/internal/domain/interview"
	"github.com/noaesperanza/imre/internal/domain/report"
	"github.com/noaesperanza/imre/internal/domain/sharing"
	"github.com/noaesperanza/imre/internal/evaluation"
)

const (
	serverName      = "imre"
	serverVersion   = "0.1.0"
	protocolVersion = "2025-06-18"
)

// Evaluation defines the evaluation operations exposed as tools.
type Evaluation interface {
	StartInterview(ctx context.Context, tenantID, patientRef string) (*interview.Snapshot, error)
	Answer(ctx context.Context, tenantID string, req evaluation.AnswerRequest) (*interview.Snapshot, error)
	Confirm(ctx context.Context, tenantID, sessionID, actorRef string) (*evaluation.ConfirmResult, error)
	Abandon(ctx context.Context, tenantID, sessionID, reason, actorRef string) (*interview.Snapshot, error)
	GetSession(ctx context.Context, tenantID, sessionID, viewerRef string) (*evaluation.SessionView, error)
	ActiveSession(ctx context.Context, tenantID, patientRef string) (*evaluation.SessionView, error)
	ListSessions(ctx context.Context, tenantID, patientRef string) ([]interview.SessionInfo, error)
	GetReport(ctx context.Context, tenantID, sessionID, viewerRef string) (*report.Report, error)
	ViewReport(ctx context.Context, tenantID, reportID, viewerRef string) (*report.Report, error)
	ShareReport(ctx context.Context, tenantID, reportID, targetRef, actingRef string) (*sharing.Grant, error)
	RevokeShare(ctx context.Context, tenantID, grantID, actingRef string) (*sharing.Grant, error)
	ListGrants(ctx context.Context, tenantID, reportID, viewerRef string) ([]sharing.Grant, error)
	Catalog() []catalog.StageDefinition
	RecentActivity(ctx context.Context, tenantID string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// Config contains server configuration.
type Config struct {
	Handler       *Handler
	Resolver      auth.Resolver
	AuthEnabled   bool
	TransportMode string // "stdio" or "http"
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	// Stdio is a local single-user transport and never authenticates.
	if cfg.TransportMode != "stdio" && cfg.AuthEnabled {
		server.AddReceivingMiddleware(authMiddleware(cfg.Resolver))
	} else {
		server.AddReceivingMiddleware(noAuthMiddleware(auth.DefaultTenant))
	}
	server.AddReceivingMiddleware(actorMiddleware())
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, cfg.Handler)

	return server
}
