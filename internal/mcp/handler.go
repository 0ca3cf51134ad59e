package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/noaesperanza/imre/internal/auth"
	"github.com/noaesperanza/imre/internal/domain/activity"
	"github.com/noaesperanza/imre/internal/domain/interview"
	"github.com/noaesperanza/imre/internal/domain/sharing"
	"github.com/noaesperanza/imre/internal/evaluation"
	"github.com/noaesperanza/imre/internal/transport"
)

// Handler dispatches tool calls to the evaluation service.
type Handler struct {
	eval Evaluation
}

// NewHandler creates a new MCP handler.
func NewHandler(eval Evaluation) *Handler {
	return &Handler{eval: eval}
}

// Handle dispatches a tool, or one of the protocol methods initialize,
// tools/list and tools/call, on behalf of the identity.
func (h *Handler) Handle(ctx context.Context, id auth.Identity, method string, params json.RawMessage) (any, error) {
	switch method {
	case "initialize":
		return InitializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities: ServerCapabilities{
				Tools:     &ToolsCapability{},
				Resources: &ResourcesCapability{},
			},
			ServerInfo:   ImplementationInfo{Name: serverName, Version: serverVersion},
			Instructions: serverInstructions,
		}, nil
	case "tools/list":
		return ToolsListResult{Tools: buildToolCatalog()}, nil
	case "tools/call":
		var call ToolCallParams
		if err := decodeParams(params, &call); err != nil {
			return nil, err
		}
		result, err := h.callTool(ctx, id, call.Name, call.Arguments)
		return toolCallResult(result, err), nil
	}
	return h.callTool(ctx, id, method, params)
}

func (h *Handler) callTool(ctx context.Context, id auth.Identity, name string, params json.RawMessage) (any, error) {
	tenantID := id.TenantID
	switch name {
	case "get_catalog":
		return CatalogResponse{Stages: h.eval.Catalog()}, nil
	case "start_interview":
		var req StartInterviewParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		snap, err := h.eval.StartInterview(ctx, tenantID, actingRef(id, req.PatientRef))
		if err != nil {
			return nil, mapError(err)
		}
		return snap, nil
	case "submit_answer":
		var req SubmitAnswerParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		snap, err := h.eval.Answer(ctx, tenantID, evaluation.AnswerRequest{
			SessionID: req.SessionID,
			StageID:   req.StageID,
			FieldKey:  req.FieldKey,
			Value:     req.Value,
			ActorRef:  id.ActorRef,
		})
		if err != nil {
			return nil, mapError(err)
		}
		return snap, nil
	case "confirm_closure":
		var req SessionParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		result, err := h.eval.Confirm(ctx, tenantID, req.SessionID, id.ActorRef)
		if err != nil {
			return nil, mapError(err)
		}
		return ConfirmResponse{
			Session:       result.Session,
			Report:        result.Report,
			ReportPending: result.Report == nil,
		}, nil
	case "abandon_interview":
		var req AbandonParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		snap, err := h.eval.Abandon(ctx, tenantID, req.SessionID, req.Reason, id.ActorRef)
		if err != nil {
			return nil, mapError(err)
		}
		return snap, nil
	case "get_session":
		var req GetSessionParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		var (
			view *evaluation.SessionView
			err  error
		)
		if req.SessionID != "" {
			view, err = h.eval.GetSession(ctx, tenantID, req.SessionID, id.ActorRef)
		} else {
			view, err = h.eval.ActiveSession(ctx, tenantID, actingRef(id, req.PatientRef))
		}
		if err != nil {
			return nil, mapError(err)
		}
		return view, nil
	case "list_sessions":
		var req ListSessionsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		sessions, err := h.eval.ListSessions(ctx, tenantID, actingRef(id, req.PatientRef))
		if err != nil {
			return nil, mapError(err)
		}
		if sessions == nil {
			sessions = []interview.SessionInfo{}
		}
		return SessionListResponse{Sessions: sessions}, nil
	case "get_report":
		var req SessionParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		rep, err := h.eval.GetReport(ctx, tenantID, req.SessionID, id.ActorRef)
		if err != nil {
			return nil, mapError(err)
		}
		return rep, nil
	case "view_report":
		var req ViewReportParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		rep, err := h.eval.ViewReport(ctx, tenantID, req.ReportID, actingRef(id, req.ViewerRef))
		if err != nil {
			return nil, mapError(err)
		}
		return rep, nil
	case "share_report":
		var req ShareReportParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		grant, err := h.eval.ShareReport(ctx, tenantID, req.ReportID, req.TargetRef, actingRef(id, req.ActingUserRef))
		if err != nil {
			return nil, mapError(err)
		}
		return grant, nil
	case "revoke_share":
		var req RevokeShareParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		grant, err := h.eval.RevokeShare(ctx, tenantID, req.GrantID, actingRef(id, req.ActingUserRef))
		if err != nil {
			return nil, mapError(err)
		}
		return grant, nil
	case "list_grants":
		var req ListGrantsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		grants, err := h.eval.ListGrants(ctx, tenantID, req.ReportID, id.ActorRef)
		if err != nil {
			return nil, mapError(err)
		}
		resp := GrantListResponse{Grants: grants}
		if resp.Grants == nil {
			resp.Grants = []sharing.Grant{}
		}
		return resp, nil
	case "get_recent_activity":
		var req GetRecentActivityParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		opts := activity.ListActivityOptions{
			SessionID: req.SessionID,
			ReportID:  req.ReportID,
			Limit:     req.Limit,
			Offset:    req.Offset,
		}
		if req.Type != nil {
			typ := activity.ActivityType(*req.Type)
			opts.ActivityType = &typ
		}
		entries, err := h.eval.RecentActivity(ctx, tenantID, opts)
		if err != nil {
			return nil, mapError(err)
		}
		resp := ActivityListResponse{Entries: make([]ActivityEntryResponse, 0, len(entries))}
		for _, entry := range entries {
			item := ActivityEntryResponse{
				Timestamp: entry.CreatedAt,
				Type:      entry.ActivityType,
				SessionID: stringValue(entry.SessionID),
				ReportID:  stringValue(entry.ReportID),
				ActorRef:  entry.ActorRef,
				Summary:   entry.Summary,
			}
			if entry.Details != "" {
				item.Details = json.RawMessage(entry.Details)
			}
			resp.Entries = append(resp.Entries, item)
		}
		return resp, nil
	default:
		return nil, fmt.Errorf("%w: %s", transport.ErrMethodNotFound, name)
	}
}

// actingRef prefers the actor bound to the credential over one named in
// the arguments.
func actingRef(id auth.Identity, explicit string) string {
	if id.ActorRef != "" {
		return id.ActorRef
	}
	return strings.TrimSpace(explicit)
}

func decodeParams(params json.RawMessage, out any) error {
	if len(params) == 0 || string(params) == "null" {
		return nil
	}
	if err := json.Unmarshal(params, out); err != nil {
		return fmt.Errorf("%w: %v", transport.ErrInvalidParams, err)
	}
	return nil
}

func stringValue(val *string) string {
	if val == nil {
		return ""
	}
	return *val
}
