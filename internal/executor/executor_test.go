package executor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/please-dev/please-gateway/internal/config"
	"github.com/please-dev/please-gateway/internal/index"
	"github.com/please-dev/please-gateway/internal/oauthstore"
	"github.com/please-dev/please-gateway/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockUpstream(t *testing.T, expectAuth string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if expectAuth != "" {
			assert.Equal(t, "Bearer "+expectAuth, r.Header.Get("Authorization"))
		}
		var req registry.JSONRPCRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		switch req.Method {
		case "initialize":
			_ = json.NewEncoder(w).Encode(registry.NewResponse(req.ID, map[string]interface{}{}))
		case "tools/call":
			_ = json.NewEncoder(w).Encode(registry.NewResponse(req.ID, registry.ToolResult{
				Content: []registry.ContentBlock{{Type: "text", Text: "ok"}},
			}))
		}
	}))
}

func toolWithProvenance(name, server, original string) index.IndexedTool {
	def := registry.WithProvenance(registry.ToolDefinition{Name: original, Description: "d"}, server)
	def.Name = name
	return index.IndexedTool{Tool: def}
}

func TestExecute_Success(t *testing.T) {
	srv := mockUpstream(t, "")
	defer srv.Close()

	tools := []index.IndexedTool{toolWithProvenance("docs__search", "docs", "search")}
	upstreams := map[string]config.UpstreamConfig{
		"docs": {URL: srv.URL, Transport: "http"},
	}

	e := New(tools, upstreams, nil, nil)
	outcome := e.Execute(context.Background(), "docs__search", map[string]interface{}{"query": "x"})

	require.True(t, outcome.Succeeded())
	require.NotNil(t, outcome.Result)
	assert.Equal(t, "ok", outcome.Result.Content[0].Text)
}

func TestExecute_BearerTokenPassedThrough(t *testing.T) {
	srv := mockUpstream(t, "secret-token")
	defer srv.Close()

	tools := []index.IndexedTool{toolWithProvenance("docs__search", "docs", "search")}
	upstreams := map[string]config.UpstreamConfig{
		"docs": {
			URL: srv.URL, Transport: "http",
			Authorization: config.Authorization{Type: config.AuthBearer, Token: "secret-token"},
		},
	}

	e := New(tools, upstreams, nil, nil)
	outcome := e.Execute(context.Background(), "docs__search", nil)
	assert.True(t, outcome.Succeeded())
}

func TestExecute_ToolNotFound(t *testing.T) {
	e := New(nil, nil, nil, nil)
	outcome := e.Execute(context.Background(), "docs__missing", nil)
	assert.Equal(t, KindToolNotFound, outcome.Kind)
}

func TestExecute_MetadataMissing(t *testing.T) {
	tools := []index.IndexedTool{{Tool: registry.ToolDefinition{Name: "bare"}}}
	e := New(tools, nil, nil, nil)
	outcome := e.Execute(context.Background(), "bare", nil)
	assert.Equal(t, KindMetadataMissing, outcome.Kind)
	assert.NotEmpty(t, outcome.Hint)
}

func TestExecute_ServerNotConfigured(t *testing.T) {
	tools := []index.IndexedTool{toolWithProvenance("docs__search", "docs", "search")}
	e := New(tools, map[string]config.UpstreamConfig{}, nil, nil)
	outcome := e.Execute(context.Background(), "docs__search", nil)
	assert.Equal(t, KindServerNotConfigured, outcome.Kind)
	assert.Contains(t, outcome.Hint, "please mcp list")
}

func TestExecute_AuthRequiredWithoutSession(t *testing.T) {
	tools := []index.IndexedTool{toolWithProvenance("docs__search", "docs", "search")}
	upstreams := map[string]config.UpstreamConfig{
		"docs": {
			URL: "https://example.invalid", Transport: "http",
			Authorization: config.Authorization{Type: config.AuthOAuth2, OAuth: &config.OAuthConfig{Resource: "https://example.invalid"}},
		},
	}

	store := oauthstore.New(t.TempDir())

	e := New(tools, upstreams, store, nil)
	outcome := e.Execute(context.Background(), "docs__search", nil)
	assert.Equal(t, KindAuthRequired, outcome.Kind)
	assert.Contains(t, outcome.Hint, "please mcp auth docs")
}

func TestExecute_ConnectionFailureIsExecutionFailed(t *testing.T) {
	tools := []index.IndexedTool{toolWithProvenance("docs__search", "docs", "search")}
	upstreams := map[string]config.UpstreamConfig{
		"docs": {URL: "http://127.0.0.1:1", Transport: "http"},
	}

	e := New(tools, upstreams, nil, nil)
	outcome := e.Execute(context.Background(), "docs__search", nil)
	assert.Equal(t, KindExecutionFailed, outcome.Kind)
}
