package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/please-dev/please-gateway/internal/registry"
)

// toolDefinitions is the fixed schema for the four meta-tools the
// gateway advertises via tools/list.
func toolDefinitions() []registry.ToolDefinition {
	return []registry.ToolDefinition{
		{
			Name:        ToolSearchTools,
			Description: "Searches the aggregated tool index and ranks matches by relevance.",
			InputSchema: &registry.JSONSchema{
				Type: "object",
				Properties: map[string]registry.PropertySchema{
					"query":     {Type: "string", Description: "Search query."},
					"mode":      {Type: "string", Description: "Ranking strategy.", Enum: []string{"regex", "bm25", "embedding", "hybrid"}},
					"top_k":     {Type: "integer", Description: "Maximum number of results."},
					"threshold": {Type: "number", Description: "Minimum score to include a result."},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        ToolListTools,
			Description: "Paginates over every tool in the aggregated index.",
			InputSchema: &registry.JSONSchema{
				Type: "object",
				Properties: map[string]registry.PropertySchema{
					"limit":  {Type: "integer", Description: "Page size."},
					"offset": {Type: "integer", Description: "Number of tools to skip."},
				},
			},
		},
		{
			Name:        ToolGetTool,
			Description: "Returns a tool's full schema plus a CLI-usage template for delegated execution.",
			InputSchema: &registry.JSONSchema{
				Type: "object",
				Properties: map[string]registry.PropertySchema{
					"name": {Type: "string", Description: "Fully-qualified tool name."},
				},
				Required: []string{"name"},
			},
		},
		{
			Name:        ToolSearchInfoName,
			Description: "Reports index metadata and which search modes are currently available.",
			InputSchema: &registry.JSONSchema{Type: "object", Properties: map[string]registry.PropertySchema{}},
		},
	}
}

// ServeStdio runs the MCP JSON-RPC read-eval loop over r/w: one request
// per line in, one response per line out. It returns when r is
// exhausted or ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context, r io.Reader, w io.Writer) error {
	reader := bufio.NewReader(r)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("gateway: read request: %w", err)
		}
		if len(line) == 0 {
			continue
		}

		resp := s.handleLine(ctx, line)
		if resp == nil {
			continue // notification: no response expected
		}

		data, err := json.Marshal(resp)
		if err != nil {
			return fmt.Errorf("gateway: marshal response: %w", err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("gateway: write response: %w", err)
		}
	}
}

func (s *Server) handleLine(ctx context.Context, line []byte) *registry.JSONRPCResponse {
	var req registry.JSONRPCRequest
	if err := json.Unmarshal(line, &req); err != nil {
		resp := registry.NewErrorResponse(nil, registry.ParseError, "parse error")
		return &resp
	}

	if req.ID == nil {
		// Notification (e.g. notifications/initialized): no response.
		return nil
	}

	resp := s.HandleRequest(ctx, req)
	return &resp
}

// HandleRequest evaluates one JSON-RPC request against the gateway's
// fixed method set: initialize, tools/list, tools/call. call_tool is
// intentionally not exposed at this layer; execution is routed through
// the CLI.
func (s *Server) HandleRequest(ctx context.Context, req registry.JSONRPCRequest) registry.JSONRPCResponse {
	switch req.Method {
	case "initialize":
		return registry.NewResponse(req.ID, map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities":    map[string]interface{}{"tools": map[string]interface{}{}},
			"serverInfo":      map[string]string{"name": "please-gateway", "version": "0.1.0"},
		})

	case "tools/list":
		return registry.NewResponse(req.ID, map[string]interface{}{"tools": toolDefinitions()})

	case "tools/call":
		var params struct {
			Name      string                 `json:"name"`
			Arguments map[string]interface{} `json:"arguments"`
		}
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return registry.NewErrorResponse(req.ID, registry.InvalidParams, fmt.Sprintf("invalid params: %v", err))
		}

		result, err := s.Dispatch(ctx, params.Name, params.Arguments)
		if err != nil {
			return registry.NewErrorResponse(req.ID, registry.MethodNotFound, err.Error())
		}

		payload, err := json.Marshal(result)
		if err != nil {
			return registry.NewErrorResponse(req.ID, registry.InternalError, err.Error())
		}
		return registry.NewResponse(req.ID, registry.ToolResult{
			Content: []registry.ContentBlock{{Type: "text", Text: string(payload)}},
		})

	default:
		return registry.NewErrorResponse(req.ID, registry.MethodNotFound, "method not found")
	}
}
