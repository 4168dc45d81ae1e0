package mcpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/please-dev/please-gateway/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InfersTransportFromURL(t *testing.T) {
	c := New(ServerConfig{URL: "http://example.com"})
	_, ok := c.(*httpClient)
	assert.True(t, ok)

	c = New(ServerConfig{Command: "echo"})
	_, ok = c.(*stdioClient)
	assert.True(t, ok)
}

func TestNew_ExplicitTransportOverridesInference(t *testing.T) {
	c := New(ServerConfig{Transport: TransportSSE, URL: "http://example.com"})
	_, ok := c.(*sseClient)
	assert.True(t, ok)
}

func TestSanitizeEnv_DropsEmptyOverlayEntries(t *testing.T) {
	base := []string{"PATH=/usr/bin"}
	env := sanitizeEnv(base, map[string]string{"": "x", "TOKEN": "", "API_KEY": "secret"})
	assert.Contains(t, env, "PATH=/usr/bin")
	assert.Contains(t, env, "API_KEY=secret")
	assert.Len(t, env, 2)
}

func TestHTTPClient_FullLifecycle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		var req registry.JSONRPCRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		switch req.Method {
		case "initialize":
			_ = json.NewEncoder(w).Encode(registry.NewResponse(req.ID, map[string]interface{}{}))
		case "tools/list":
			_ = json.NewEncoder(w).Encode(registry.NewResponse(req.ID, map[string]interface{}{
				"tools": []registry.ToolDefinition{{Name: "echo", Description: "echoes input"}},
			}))
		case "tools/call":
			_ = json.NewEncoder(w).Encode(registry.NewResponse(req.ID, registry.ToolResult{
				Content: []registry.ContentBlock{{Type: "text", Text: "ok"}},
			}))
		}
	}))
	defer srv.Close()

	c := New(ServerConfig{Transport: TransportHTTP, URL: srv.URL, AccessToken: "test-token"})
	ctx := context.Background()
	require.NoError(t, c.Connect(ctx))

	tools, err := c.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "echo", tools[0].Name)

	result, err := c.CallTool(ctx, "echo", map[string]interface{}{"text": "hi"})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "ok", result.Content[0].Text)

	assert.NoError(t, c.Close())
}

func TestHTTPClient_PropagatesJSONRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req registry.JSONRPCRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(registry.NewErrorResponse(req.ID, registry.MethodNotFound, "boom"))
	}))
	defer srv.Close()

	c := New(ServerConfig{Transport: TransportHTTP, URL: srv.URL})
	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestSSEClient_ParsesDataEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req registry.JSONRPCRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		payload, _ := json.Marshal(registry.NewResponse(req.ID, map[string]interface{}{
			"tools": []registry.ToolDefinition{{Name: "search", Description: "searches"}},
		}))

		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "event: message\ndata: %s\n\n", payload)
	}))
	defer srv.Close()

	c := New(ServerConfig{Transport: TransportSSE, URL: srv.URL})
	tools, err := c.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "search", tools[0].Name)
}

func TestReadSSEMessage_ConcatenatesMultilineData(t *testing.T) {
	pr, pw := io.Pipe()
	go func() {
		fmt.Fprint(pw, "data: line one\ndata: line two\n\n")
		pw.Close()
	}()

	data, err := readSSEMessage(pr)
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", string(data))
}

func TestStdioClient_HandshakeAndCallTool(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	// A tiny shell "server" that answers initialize, tools/list and
	// tools/call by echoing canned JSON-RPC responses line by line.
	script := `while IFS= read -r line; do
  case "$line" in
    *initialize*) echo '{"jsonrpc":"2.0","id":2,"result":{}}' ;;
    *tools/list*) echo '{"jsonrpc":"2.0","id":3,"result":{"tools":[{"name":"ping","description":"pings"}]}}' ;;
    *tools/call*) echo '{"jsonrpc":"2.0","id":4,"result":{"content":[{"type":"text","text":"pong"}]}}' ;;
  esac
done`

	c := New(ServerConfig{Command: "sh", Args: []string{"-c", script}, ConnectTimeout: 5 * time.Second})
	ctx := context.Background()
	require.NoError(t, c.Connect(ctx))
	defer c.Close()

	tools, err := c.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "ping", tools[0].Name)

	result, err := c.CallTool(ctx, "ping", nil)
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "pong", result.Content[0].Text)
}
