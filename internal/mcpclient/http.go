package mcpclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/please-dev/please-gateway/internal/registry"
)

// httpClient speaks Streamable HTTP MCP: each JSON-RPC call is a single
// POST carrying one JSON object per request/response, with the access
// token (if any) injected as a bearer header.
type httpClient struct {
	cfg    ServerConfig
	client *http.Client
	nextID int64
}

func newHTTPClient(cfg ServerConfig) *httpClient {
	return &httpClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.timeout()},
		nextID: 1,
	}
}

func (c *httpClient) Connect(ctx context.Context) error {
	req := registry.JSONRPCRequest{JSONRPC: "2.0", ID: c.allocID(), Method: "initialize"}
	params := map[string]interface{}{
		"protocolVersion": "2024-11-05",
		"capabilities":    map[string]interface{}{},
		"clientInfo":      map[string]string{"name": "please-gateway", "version": "0.1.0"},
	}
	req.Params, _ = json.Marshal(params)

	resp, err := c.call(ctx, req)
	if err != nil {
		return fmt.Errorf("http client: initialize failed: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("http client: initialize error: %s", resp.Error.Message)
	}
	return nil
}

func (c *httpClient) ListTools(ctx context.Context) ([]registry.ToolDefinition, error) {
	resp, err := c.call(ctx, registry.JSONRPCRequest{JSONRPC: "2.0", ID: c.allocID(), Method: "tools/list"})
	if err != nil {
		return nil, fmt.Errorf("http client: tools/list failed: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("http client: tools/list error: %s", resp.Error.Message)
	}

	var result struct {
		Tools []registry.ToolDefinition `json:"tools"`
	}
	raw, err := json.Marshal(resp.Result)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("http client: parse tools/list result: %w", err)
	}
	return result.Tools, nil
}

func (c *httpClient) CallTool(ctx context.Context, name string, arguments map[string]interface{}) (*registry.ToolResult, error) {
	req := registry.JSONRPCRequest{JSONRPC: "2.0", ID: c.allocID(), Method: "tools/call"}
	params := struct {
		Name      string                 `json:"name"`
		Arguments map[string]interface{} `json:"arguments"`
	}{Name: name, Arguments: arguments}
	req.Params, _ = json.Marshal(params)

	resp, err := c.call(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("http client: tools/call failed: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("http client: tools/call error: %s", resp.Error.Message)
	}

	var result registry.ToolResult
	raw, err := json.Marshal(resp.Result)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("http client: parse tools/call result: %w", err)
	}
	return &result, nil
}

func (c *httpClient) call(ctx context.Context, rpcReq registry.JSONRPCRequest) (*registry.JSONRPCResponse, error) {
	body, err := json.Marshal(rpcReq)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.AccessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	// Streamable HTTP responses may arrive newline-delimited even though
	// each call carries exactly one response object; read the first line
	// to tolerate either framing.
	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		return nil, err
	}
	if len(bytes.TrimSpace(line)) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	var rpcResp registry.JSONRPCResponse
	if err := json.Unmarshal(line, &rpcResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &rpcResp, nil
}

func (c *httpClient) allocID() int64 {
	c.nextID++
	return c.nextID
}

func (c *httpClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
