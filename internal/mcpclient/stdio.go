package mcpclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/please-dev/please-gateway/internal/registry"
)

// stdioClient spawns an upstream MCP server process and speaks
// newline-delimited JSON-RPC over its stdin/stdout, matching the wire
// shape of a real MCP stdio server. It is not a long-lived cache: it
// lives for exactly one Connect, operation, Close cycle.
type stdioClient struct {
	cfg ServerConfig

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader

	nextID int64
}

func newStdioClient(cfg ServerConfig) *stdioClient {
	return &stdioClient{cfg: cfg, nextID: 1}
}

func (c *stdioClient) Connect(ctx context.Context) error {
	connectCtx, cancel := context.WithTimeout(ctx, c.cfg.timeout())
	defer cancel()

	c.cmd = exec.Command(c.cfg.Command, c.cfg.Args...)
	c.cmd.Env = sanitizeEnv(os.Environ(), c.cfg.Env)
	c.cmd.Stderr = os.Stderr

	stdin, err := c.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdio client: create stdin pipe: %w", err)
	}
	c.stdin = stdin

	stdout, err := c.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdio client: create stdout pipe: %w", err)
	}
	c.stdout = bufio.NewReader(stdout)

	if err := c.cmd.Start(); err != nil {
		return fmt.Errorf("stdio client: start process: %w", err)
	}

	return c.handshake(connectCtx)
}

func (c *stdioClient) handshake(ctx context.Context) error {
	initReq := registry.JSONRPCRequest{JSONRPC: "2.0", ID: c.allocID(), Method: "initialize"}
	initParams := map[string]interface{}{
		"protocolVersion": "2024-11-05",
		"capabilities":    map[string]interface{}{},
		"clientInfo":      map[string]string{"name": "please-gateway", "version": "0.1.0"},
	}
	initReq.Params, _ = json.Marshal(initParams)

	resp, err := c.sendRequest(ctx, initReq)
	if err != nil {
		return fmt.Errorf("stdio client: initialize failed: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("stdio client: initialize error: %s", resp.Error.Message)
	}

	return c.sendNotification(registry.JSONRPCRequest{JSONRPC: "2.0", Method: "notifications/initialized"})
}

func (c *stdioClient) ListTools(ctx context.Context) ([]registry.ToolDefinition, error) {
	req := registry.JSONRPCRequest{JSONRPC: "2.0", ID: c.allocID(), Method: "tools/list"}
	resp, err := c.sendRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("stdio client: tools/list failed: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("stdio client: tools/list error: %s", resp.Error.Message)
	}

	var result struct {
		Tools []registry.ToolDefinition `json:"tools"`
	}
	raw, err := json.Marshal(resp.Result)
	if err != nil {
		return nil, fmt.Errorf("stdio client: re-marshal tools/list result: %w", err)
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("stdio client: parse tools/list result: %w", err)
	}
	return result.Tools, nil
}

func (c *stdioClient) CallTool(ctx context.Context, name string, arguments map[string]interface{}) (*registry.ToolResult, error) {
	req := registry.JSONRPCRequest{JSONRPC: "2.0", ID: c.allocID(), Method: "tools/call"}
	params := struct {
		Name      string                 `json:"name"`
		Arguments map[string]interface{} `json:"arguments"`
	}{Name: name, Arguments: arguments}
	req.Params, _ = json.Marshal(params)

	resp, err := c.sendRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("stdio client: tools/call failed: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("stdio client: tools/call error: %s", resp.Error.Message)
	}

	var result registry.ToolResult
	raw, err := json.Marshal(resp.Result)
	if err != nil {
		return nil, fmt.Errorf("stdio client: re-marshal tools/call result: %w", err)
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("stdio client: parse tools/call result: %w", err)
	}
	return &result, nil
}

func (c *stdioClient) sendRequest(ctx context.Context, req registry.JSONRPCRequest) (*registry.JSONRPCResponse, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	data = append(data, '\n')
	if _, err := c.stdin.Write(data); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	type readResult struct {
		resp *registry.JSONRPCResponse
		err  error
	}
	ch := make(chan readResult, 1)
	go func() {
		line, err := c.stdout.ReadBytes('\n')
		if err != nil {
			ch <- readResult{err: err}
			return
		}
		var resp registry.JSONRPCResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			ch <- readResult{err: fmt.Errorf("parse response: %w", err)}
			return
		}
		ch <- readResult{resp: &resp}
	}()

	select {
	case r := <-ch:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *stdioClient) sendNotification(req registry.JSONRPCRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = c.stdin.Write(data)
	return err
}

func (c *stdioClient) allocID() int64 {
	c.nextID++
	return c.nextID
}

// Close is attempted even on error and its own errors are swallowed by
// callers; it tries SIGINT first, then force-kills after 2s.
func (c *stdioClient) Close() error {
	if c.stdin != nil {
		c.stdin.Close()
	}
	if c.cmd == nil || c.cmd.Process == nil {
		return nil
	}

	c.cmd.Process.Signal(os.Interrupt)
	done := make(chan error, 1)
	go func() { done <- c.cmd.Wait() }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		c.cmd.Process.Kill()
	}
	return nil
}
