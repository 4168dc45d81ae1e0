package mcpclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/please-dev/please-gateway/internal/registry"
)

// sseClient speaks the legacy MCP SSE transport: requests are POSTed to
// cfg.URL and the response arrives as a "message" event on a
// server-sent-events stream read from the same connection.
type sseClient struct {
	cfg    ServerConfig
	client *http.Client
	nextID int64
}

func newSSEClient(cfg ServerConfig) *sseClient {
	return &sseClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.timeout()},
		nextID: 1,
	}
}

func (c *sseClient) Connect(ctx context.Context) error {
	req := registry.JSONRPCRequest{JSONRPC: "2.0", ID: c.allocID(), Method: "initialize"}
	params := map[string]interface{}{
		"protocolVersion": "2024-11-05",
		"capabilities":    map[string]interface{}{},
		"clientInfo":      map[string]string{"name": "please-gateway", "version": "0.1.0"},
	}
	req.Params, _ = json.Marshal(params)

	resp, err := c.call(ctx, req)
	if err != nil {
		return fmt.Errorf("sse client: initialize failed: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("sse client: initialize error: %s", resp.Error.Message)
	}
	return nil
}

func (c *sseClient) ListTools(ctx context.Context) ([]registry.ToolDefinition, error) {
	resp, err := c.call(ctx, registry.JSONRPCRequest{JSONRPC: "2.0", ID: c.allocID(), Method: "tools/list"})
	if err != nil {
		return nil, fmt.Errorf("sse client: tools/list failed: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("sse client: tools/list error: %s", resp.Error.Message)
	}

	var result struct {
		Tools []registry.ToolDefinition `json:"tools"`
	}
	raw, err := json.Marshal(resp.Result)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("sse client: parse tools/list result: %w", err)
	}
	return result.Tools, nil
}

func (c *sseClient) CallTool(ctx context.Context, name string, arguments map[string]interface{}) (*registry.ToolResult, error) {
	req := registry.JSONRPCRequest{JSONRPC: "2.0", ID: c.allocID(), Method: "tools/call"}
	params := struct {
		Name      string                 `json:"name"`
		Arguments map[string]interface{} `json:"arguments"`
	}{Name: name, Arguments: arguments}
	req.Params, _ = json.Marshal(params)

	resp, err := c.call(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("sse client: tools/call failed: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("sse client: tools/call error: %s", resp.Error.Message)
	}

	var result registry.ToolResult
	raw, err := json.Marshal(resp.Result)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("sse client: parse tools/call result: %w", err)
	}
	return &result, nil
}

func (c *sseClient) call(ctx context.Context, rpcReq registry.JSONRPCRequest) (*registry.JSONRPCResponse, error) {
	body, err := json.Marshal(rpcReq)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.cfg.AccessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := readSSEMessage(resp.Body)
	if err != nil {
		return nil, err
	}

	var rpcResp registry.JSONRPCResponse
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return nil, fmt.Errorf("parse sse message: %w", err)
	}
	return &rpcResp, nil
}

// readSSEMessage reads a single server-sent event's "data:" payload,
// concatenating multiple data lines per the SSE spec before returning.
// A blank line terminates the event.
func readSSEMessage(body io.Reader) ([]byte, error) {
	scanner := bufio.NewScanner(body)
	var data bytes.Buffer
	seenData := false

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if seenData {
				return data.Bytes(), nil
			}
			continue
		case strings.HasPrefix(line, "data:"):
			if seenData {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			seenData = true
		default:
			// ignore event:, id:, retry: and comment lines
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if seenData {
		return data.Bytes(), nil
	}
	return nil, fmt.Errorf("no data event received")
}

func (c *sseClient) allocID() int64 {
	c.nextID++
	return c.nextID
}

func (c *sseClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
