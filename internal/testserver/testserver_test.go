package testserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/noaesperanza/imre/internal/auth"
	"github.com/noaesperanza/imre/internal/domain/interview/interviewtest"
	"github.com/noaesperanza/imre/internal/sqlite"
	"github.com/noaesperanza/imre/internal/testserver"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	SessionID      string `json:"session_id"`
	CurrentStageID string `json:"current_stage_id"`
	Status         string `json:"status"`
	PendingFields  []struct {
		Key string `json:"key"`
	} `json:"pending_fields"`
}

type reportBody struct {
	ID             string `json:"id"`
	Recommendation string `json:"recommendation"`
	ConsentToShare bool   `json:"consent_to_share"`
	Sections       []struct {
		StageID       string `json:"stage_id"`
		NarrativeText string `json:"narrative_text"`
	} `json:"sections"`
}

type grantBody struct {
	ID        string     `json:"id"`
	RevokedAt *time.Time `json:"revoked_at"`
}

func completeInterview(t *testing.T, ts *testserver.TestServer, token string) (snapshot, reportBody) {
	t.Helper()

	var snap snapshot
	ts.MustCall(t, token, "start_interview", map[string]any{}, &snap)
	require.Equal(t, "opening", snap.CurrentStageID)

	for _, step := range interviewtest.DefaultSteps() {
		ts.MustCall(t, token, "submit_answer", map[string]any{
			"session_id": snap.SessionID,
			"stage_id":   step.StageID,
			"field_key":  step.FieldKey,
			"value":      step.Value,
		}, &snap)
	}
	require.Equal(t, "awaiting_confirmation", snap.Status)

	var confirmed struct {
		Session snapshot    `json:"session"`
		Report  *reportBody `json:"report"`
	}
	ts.MustCall(t, token, "confirm_closure", map[string]any{"session_id": snap.SessionID}, &confirmed)
	require.Equal(t, "completed", confirmed.Session.Status)
	require.NotNil(t, confirmed.Report)
	return confirmed.Session, *confirmed.Report
}

func TestFunctional_InterviewOverRPC(t *testing.T) {
	ts := testserver.New(t, "clinic1")
	ts.AddAPIKey(t, "patient-token", "patient-1")

	var snap snapshot
	ts.MustCall(t, "patient-token", "start_interview", nil, &snap)
	require.Len(t, snap.PendingFields, 1)
	require.Equal(t, "apresentacao", snap.PendingFields[0].Key)

	resp := ts.Call(t, "patient-token", "start_interview", nil)
	require.NotNil(t, resp.Error)
	require.Equal(t, "DUPLICATE_ACTIVE_SESSION", resp.Error.Data.Code)

	resp = ts.Call(t, "patient-token", "submit_answer", map[string]any{
		"session_id": snap.SessionID,
		"stage_id":   "alergias",
		"field_key":  "possui_alergias",
		"value":      "sim",
	})
	require.NotNil(t, resp.Error)
	require.Equal(t, "STAGE_MISMATCH", resp.Error.Data.Code)
	details, ok := resp.Error.Data.Details.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "opening", details["expected_stage_id"])

	resp = ts.Call(t, "patient-token", "submit_answer", map[string]any{
		"session_id": snap.SessionID,
		"stage_id":   "opening",
		"field_key":  "apresentacao",
		"value":      "   ",
	})
	require.Equal(t, "VALIDATION_ERROR", resp.Error.Data.Code)

	resp = ts.Call(t, "patient-token", "get_report", map[string]any{"session_id": snap.SessionID})
	require.Equal(t, "REPORT_PENDING", resp.Error.Data.Code)

	// Resume by patient and carry on.
	var view struct {
		snapshot
		Answers []json.RawMessage `json:"answers"`
	}
	ts.MustCall(t, "patient-token", "get_session", nil, &view)
	require.Equal(t, snap.SessionID, view.SessionID)
	require.Empty(t, view.Answers)

	var abandoned snapshot
	ts.MustCall(t, "patient-token", "abandon_interview", map[string]any{
		"session_id": snap.SessionID,
		"reason":     "retomar depois",
	}, &abandoned)
	require.Equal(t, "abandoned", abandoned.Status)

	done, rep := completeInterview(t, ts, "patient-token")
	require.Equal(t, "schedule_consultation", rep.Recommendation)
	require.Len(t, rep.Sections, 12)

	var fetched reportBody
	ts.MustCall(t, "patient-token", "get_report", map[string]any{"session_id": done.SessionID}, &fetched)
	require.Equal(t, rep.ID, fetched.ID)

	var sessions struct {
		Sessions []json.RawMessage `json:"sessions"`
	}
	ts.MustCall(t, "patient-token", "list_sessions", nil, &sessions)
	require.Len(t, sessions.Sessions, 2)

	var activity struct {
		Entries []struct {
			Type string `json:"type"`
		} `json:"entries"`
	}
	ts.MustCall(t, "patient-token", "get_recent_activity", map[string]any{"type": "answer_rejected"}, &activity)
	require.Len(t, activity.Entries, 2)
}

func TestFunctional_SharingOverRPC(t *testing.T) {
	ts := testserver.New(t, "clinic1")
	ts.AddAPIKey(t, "patient-token", "patient-1")
	ts.AddAPIKey(t, "silva-token", "dr-silva")
	ts.AddAPIKey(t, "costa-token", "dr-costa")

	_, rep := completeInterview(t, ts, "patient-token")
	require.True(t, rep.ConsentToShare)

	resp := ts.Call(t, "silva-token", "view_report", map[string]any{"report_id": rep.ID})
	require.Equal(t, "UNAUTHORIZED", resp.Error.Data.Code)

	// The bound actor overrides acting_user_ref.
	resp = ts.Call(t, "silva-token", "share_report", map[string]any{
		"report_id":       rep.ID,
		"target_ref":      "dr-silva-2",
		"acting_user_ref": "patient-1",
	})
	require.Equal(t, "UNAUTHORIZED", resp.Error.Data.Code)

	var grant grantBody
	ts.MustCall(t, "patient-token", "share_report", map[string]any{
		"report_id":  rep.ID,
		"target_ref": "dr-silva",
	}, &grant)

	var viewed reportBody
	ts.MustCall(t, "silva-token", "view_report", map[string]any{"report_id": rep.ID}, &viewed)
	require.Equal(t, rep.ID, viewed.ID)

	var reshared grantBody
	ts.MustCall(t, "silva-token", "share_report", map[string]any{
		"report_id":  rep.ID,
		"target_ref": "dr-costa",
	}, &reshared)
	ts.MustCall(t, "costa-token", "view_report", map[string]any{"report_id": rep.ID}, &viewed)

	resp = ts.Call(t, "costa-token", "revoke_share", map[string]any{"grant_id": grant.ID})
	require.Equal(t, "UNAUTHORIZED", resp.Error.Data.Code)

	var revoked grantBody
	ts.MustCall(t, "patient-token", "revoke_share", map[string]any{"grant_id": grant.ID}, &revoked)
	require.NotNil(t, revoked.RevokedAt)

	resp = ts.Call(t, "silva-token", "view_report", map[string]any{"report_id": rep.ID})
	require.Equal(t, "UNAUTHORIZED", resp.Error.Data.Code)

	var grants struct {
		Grants []grantBody `json:"grants"`
	}
	ts.MustCall(t, "patient-token", "list_grants", map[string]any{"report_id": rep.ID}, &grants)
	require.Len(t, grants.Grants, 2)
}

func TestFunctional_StrangerCannotReadRecord(t *testing.T) {
	ts := testserver.New(t, "clinic1")
	ts.AddAPIKey(t, "patient-token", "patient-1")
	ts.AddAPIKey(t, "stranger-token", "dr-stranger")

	done, rep := completeInterview(t, ts, "patient-token")

	for _, call := range []struct {
		method string
		params map[string]any
	}{
		{"view_report", map[string]any{"report_id": rep.ID}},
		{"get_report", map[string]any{"session_id": done.SessionID}},
		{"get_session", map[string]any{"session_id": done.SessionID}},
		{"list_grants", map[string]any{"report_id": rep.ID}},
	} {
		resp := ts.Call(t, "stranger-token", call.method, call.params)
		require.NotNil(t, resp.Error, call.method)
		require.Equal(t, "UNAUTHORIZED", resp.Error.Data.Code, call.method)
		require.Empty(t, resp.Result, call.method)
	}

	var grant grantBody
	ts.MustCall(t, "patient-token", "share_report", map[string]any{
		"report_id":  rep.ID,
		"target_ref": "dr-stranger",
	}, &grant)

	var fetched reportBody
	ts.MustCall(t, "stranger-token", "get_report", map[string]any{"session_id": done.SessionID}, &fetched)
	require.Equal(t, rep.ID, fetched.ID)

	resp := ts.Call(t, "stranger-token", "get_session", map[string]any{"session_id": done.SessionID})
	require.Equal(t, "UNAUTHORIZED", resp.Error.Data.Code)
}

func TestFunctional_TenantIsolation(t *testing.T) {
	ts := testserver.New(t, "clinic1")
	ts.AddAPIKey(t, "patient-token", "patient-1")
	err := sqlite.NewAPIKeyRepository(ts.DB).Create(context.Background(), &auth.APIKey{
		Hash:     auth.HashToken("other-clinic"),
		TenantID: "clinic2",
		ActorRef: "patient-1",
	})
	require.NoError(t, err)

	var snap snapshot
	ts.MustCall(t, "patient-token", "start_interview", nil, &snap)

	resp := ts.Call(t, "other-clinic", "get_session", map[string]any{"session_id": snap.SessionID})
	require.Equal(t, "NOT_FOUND", resp.Error.Data.Code)

	// Same patient ref, other tenant: no duplicate conflict.
	ts.MustCall(t, "other-clinic", "start_interview", nil, &snap)
}

func TestFunctional_RejectsUnknownToken(t *testing.T) {
	ts := testserver.New(t, "clinic1")

	req, err := http.NewRequest(http.MethodPost, ts.Server.URL+"/rpc", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer nope")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(ts.Server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (b bearerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("Authorization", "Bearer "+b.token)
	return b.base.RoundTrip(r)
}

func TestFunctional_StreamableMCP(t *testing.T) {
	ts := testserver.New(t, "clinic1")
	ts.AddAPIKey(t, "patient-token", "patient-mcp")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	cs, err := client.Connect(ctx, &sdkmcp.StreamableClientTransport{
		Endpoint:   ts.Server.URL + "/mcp",
		HTTPClient: &http.Client{Transport: bearerTransport{token: "patient-token", base: http.DefaultTransport}},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })

	tools, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	require.NotEmpty(t, tools.Tools)

	res, err := cs.CallTool(ctx, &sdkmcp.CallToolParams{Name: "start_interview", Arguments: map[string]any{}})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var snap snapshot
	text, ok := res.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal([]byte(text.Text), &snap))
	require.Equal(t, "opening", snap.CurrentStageID)

	res, err = cs.CallTool(ctx, &sdkmcp.CallToolParams{Name: "submit_answer", Arguments: map[string]any{
		"session_id": snap.SessionID,
		"stage_id":   "cannabis_medicinal",
		"field_key":  "uso_cannabis",
		"value":      "nao",
	}})
	require.NoError(t, err)
	require.True(t, res.IsError)
	text, ok = res.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	require.Contains(t, text.Text, "STAGE_MISMATCH")
}
