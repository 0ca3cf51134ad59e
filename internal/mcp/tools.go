package mcp

import (
	"context"
	"encoding/json"
	"errors"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/noaesperanza/imre/internal/auth"
	"github.com/noaesperanza/imre/internal/transport"
)

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func object(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// buildToolCatalog returns all available MCP tools
func buildToolCatalog() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "get_catalog",
			Description: "List the interview stages in their fixed order, with the fields, prompts and allowed values of each",
			InputSchema: object(map[string]any{}),
			ReadOnly:    true,
		},
		{
			Name:        "start_interview",
			Description: "Start the initial clinical evaluation for a patient. Fails if the patient already has an open interview",
			InputSchema: object(map[string]any{
				"patient_ref": stringProp("Patient reference (omit when the credential identifies the patient)"),
			}),
		},
		{
			Name:        "submit_answer",
			Description: "Record the patient's answer to one field of the current stage. Ask only the pending fields, in order, and never skip ahead",
			InputSchema: object(map[string]any{
				"session_id": stringProp("Interview session ID"),
				"stage_id":   stringProp("Current stage ID, as returned in the snapshot"),
				"field_key":  stringProp("Field key from pending_fields"),
				"value": map[string]any{
					"description": "Answer: text, one option value, a list of option values, or an integer for scales",
				},
			}, "session_id", "stage_id", "field_key", "value"),
		},
		{
			Name:        "confirm_closure",
			Description: "Record the patient's agreement with the final summary, complete the interview and produce the clinical report",
			InputSchema: object(map[string]any{
				"session_id": stringProp("Interview session ID"),
			}, "session_id"),
		},
		{
			Name:        "abandon_interview",
			Description: "End an open interview without a report",
			InputSchema: object(map[string]any{
				"session_id": stringProp("Interview session ID"),
				"reason":     stringProp("Why the interview was not finished"),
			}, "session_id"),
		},
		{
			Name:        "get_session",
			Description: "Get an interview snapshot and its answers, by session ID or by the patient's open interview. Only the patient may read a session",
			InputSchema: object(map[string]any{
				"session_id":  stringProp("Interview session ID"),
				"patient_ref": stringProp("Patient reference, to resume the open interview"),
			}),
			ReadOnly: true,
		},
		{
			Name:        "list_sessions",
			Description: "List every interview of a patient, newest first",
			InputSchema: object(map[string]any{
				"patient_ref": stringProp("Patient reference (omit when the credential identifies the patient)"),
			}),
			ReadOnly: true,
		},
		{
			Name:        "get_report",
			Description: "Get the clinical report of a completed interview, as the patient or an active grantee",
			InputSchema: object(map[string]any{
				"session_id": stringProp("Interview session ID"),
			}, "session_id"),
			ReadOnly: true,
		},
		{
			Name:        "view_report",
			Description: "Read a report as the patient or as a professional holding an active grant",
			InputSchema: object(map[string]any{
				"report_id":  stringProp("Report ID"),
				"viewer_ref": stringProp("Who is reading (omit when the credential identifies the reader)"),
			}, "report_id"),
			ReadOnly: true,
		},
		{
			Name:        "share_report",
			Description: "Grant a professional access to a report. Allowed for the patient, or for a current grantee when the patient consented to sharing",
			InputSchema: object(map[string]any{
				"report_id":       stringProp("Report ID"),
				"target_ref":      stringProp("Professional receiving access"),
				"acting_user_ref": stringProp("Who is sharing (omit when the credential identifies the user)"),
			}, "report_id", "target_ref"),
		},
		{
			Name:        "revoke_share",
			Description: "Revoke a sharing grant. Allowed for the patient or the original grantor",
			InputSchema: object(map[string]any{
				"grant_id":        stringProp("Grant ID"),
				"acting_user_ref": stringProp("Who is revoking (omit when the credential identifies the user)"),
			}, "grant_id"),
		},
		{
			Name:        "list_grants",
			Description: "List every grant of a report, including revoked ones, in the order they were made. Requires view access to the report",
			InputSchema: object(map[string]any{
				"report_id": stringProp("Report ID"),
			}, "report_id"),
			ReadOnly: true,
		},
		{
			Name:        "get_recent_activity",
			Description: "Get the audit trail, newest first, optionally filtered by session, report or type",
			InputSchema: object(map[string]any{
				"session_id": stringProp("Session ID to filter by"),
				"report_id":  stringProp("Report ID to filter by"),
				"type":       stringProp("Activity type to filter by"),
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of activity entries",
				},
				"offset": map[string]any{
					"type":        "integer",
					"description": "Offset for pagination",
				},
			}),
			ReadOnly: true,
		},
	}
}

func registerTools(server *sdkmcp.Server, h *Handler) {
	for _, def := range buildToolCatalog() {
		name := def.Name
		tool := &sdkmcp.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		}
		if def.ReadOnly {
			tool.Annotations = &sdkmcp.ToolAnnotations{ReadOnlyHint: true}
		}

		server.AddTool(tool, func(ctx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
			id, ok := auth.FromContext(ctx)
			if !ok {
				return nil, auth.ErrUnauthorized
			}
			var args json.RawMessage
			if req != nil && req.Params != nil {
				args = req.Params.Arguments
			}

			payload, isError := toolPayload(h.callTool(ctx, id, name, args))
			return &sdkmcp.CallToolResult{
				Content:           []sdkmcp.Content{&sdkmcp.TextContent{Text: formatPayload(payload)}},
				StructuredContent: payload,
				IsError:           isError,
			}, nil
		})
	}
}

func toolCallResult(result any, err error) ToolCallResult {
	payload, isError := toolPayload(result, err)
	return ToolCallResult{
		Content:           []ContentItem{{Type: "text", Text: formatPayload(payload)}},
		StructuredContent: payload,
		IsError:           isError,
	}
}

// toolPayload turns a tool outcome into the value returned to the model.
// Errors are reported in-band so the assistant can recover.
func toolPayload(result any, err error) (any, bool) {
	if err == nil {
		return result, false
	}
	if apiErr := MapError(err); apiErr != nil {
		return apiErr, true
	}
	switch {
	case errors.Is(err, transport.ErrInvalidParams):
		return &APIError{Code: "INVALID_PARAMS", Message: err.Error(), RecoveryHint: "Check the tool input schema"}, true
	case errors.Is(err, transport.ErrMethodNotFound):
		return &APIError{Code: "UNKNOWN_TOOL", Message: err.Error(), RecoveryHint: "Call tools/list"}, true
	}
	return &APIError{Code: "INTERNAL", Message: err.Error()}, true
}
