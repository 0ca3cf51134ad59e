// Package testserver runs the full HTTP stack over an in-memory database
// for functional tests.
package testserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/noaesperanza/imre/internal/auth"
	"github.com/noaesperanza/imre/internal/domain/activity"
	"github.com/noaesperanza/imre/internal/domain/catalog"
	"github.com/noaesperanza/imre/internal/domain/interview"
	"github.com/noaesperanza/imre/internal/domain/report"
	"github.com/noaesperanza/imre/internal/domain/sharing"
	"github.com/noaesperanza/imre/internal/evaluation"
	"github.com/noaesperanza/imre/internal/mcp"
	"github.com/noaesperanza/imre/internal/sqlite"
	"github.com/noaesperanza/imre/internal/transport"
	"github.com/stretchr/testify/require"
)

type TestServer struct {
	Server   *httptest.Server
	DB       *sqlite.DB
	TenantID string
}

// New starts a server with authentication enabled. Use AddAPIKey to mint
// credentials.
func New(t *testing.T, tenantID string) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	cat := catalog.Default()
	sessionRepo := sqlite.NewSessionRepository(db)
	activityRepo := sqlite.NewActivityRepository(db)
	grantRepo := sqlite.NewGrantRepository(db)
	reportRepo, err := report.NewCachedRepository(sqlite.NewReportRepository(db), 32)
	require.NoError(t, err)

	interviewSvc := interview.NewService(sessionRepo, activityRepo, interview.NewEngine(cat, nil), interview.DefaultMaxRetries, nil)
	reportSvc := report.NewService(reportRepo, activityRepo, report.NewSynthesizer(cat), nil)
	sharingSvc := sharing.NewService(grantRepo, reportRepo, activityRepo, nil)
	evalSvc := evaluation.NewService(interviewSvc, reportSvc, sharingSvc, activity.NewService(activityRepo, nil), nil)

	handler := mcp.NewHandler(evalSvc)
	resolver := auth.NewAPIKeyResolver(sqlite.NewAPIKeyRepository(db))
	mcpServer := mcp.NewServer(mcp.Config{
		Handler:       handler,
		Resolver:      resolver,
		AuthEnabled:   true,
		TransportMode: "http",
	})
	streamable := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{JSONResponse: true},
	)

	server := httptest.NewServer(transport.NewServer(handler, transport.Options{
		Auth:     transport.AuthMiddleware(resolver),
		MCP:      streamable,
		MapError: mapRPCError,
	}))

	ts := &TestServer{
		Server:   server,
		DB:       db,
		TenantID: tenantID,
	}

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return ts
}

func mapRPCError(err error) any {
	if apiErr := mcp.MapError(err); apiErr != nil {
		return apiErr
	}
	return nil
}

// AddAPIKey registers token for the server's tenant, bound to actorRef
// when it is not empty.
func (ts *TestServer) AddAPIKey(t *testing.T, token, actorRef string) {
	t.Helper()
	err := sqlite.NewAPIKeyRepository(ts.DB).Create(context.Background(), &auth.APIKey{
		Hash:     auth.HashToken(token),
		TenantID: ts.TenantID,
		ActorRef: actorRef,
	})
	require.NoError(t, err)
}

// Response is a decoded JSON-RPC response.
type Response struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *struct {
		Code    int           `json:"code"`
		Message string        `json:"message"`
		Data    *mcp.APIError `json:"data,omitempty"`
	} `json:"error,omitempty"`
}

// Call posts a JSON-RPC request to /rpc.
func (ts *TestServer) Call(t *testing.T, token, method string, params any) Response {
	t.Helper()

	payload := map[string]any{"jsonrpc": "2.0", "method": method, "id": 1}
	if params != nil {
		payload["params"] = params
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, ts.Server.URL+"/rpc", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// MustCall is Call that fails on a JSON-RPC error and decodes the result.
func (ts *TestServer) MustCall(t *testing.T, token, method string, params any, out any) {
	t.Helper()
	resp := ts.Call(t, token, method, params)
	require.Nil(t, resp.Error, "%s failed: %+v", method, resp.Error)
	if out != nil {
		require.NoError(t, json.Unmarshal(resp.Result, out))
	}
}
