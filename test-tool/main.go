// Command test-tool is a minimal stdio MCP server exposing a single
// "ping" tool, used as a real subprocess fixture by the Discovery
// Engine's integration test (a stand-in for an actual upstream when a
// hand-rolled shell script isn't expressive enough to exercise the full
// initialize/tools-list/tools-call sequence).
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/please-dev/please-gateway/internal/registry"
)

func main() {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		var req registry.JSONRPCRequest
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			continue
		}
		if req.ID == nil {
			continue // notification, no response expected
		}

		var resp registry.JSONRPCResponse
		switch req.Method {
		case "initialize":
			resp = registry.NewResponse(req.ID, map[string]interface{}{
				"protocolVersion": "2024-11-05",
				"serverInfo":      map[string]string{"name": "test-tool", "version": "0.1.0"},
			})
		case "tools/list":
			resp = registry.NewResponse(req.ID, map[string]interface{}{
				"tools": []registry.ToolDefinition{{
					Name:        "ping",
					Description: "replies pong",
					InputSchema: &registry.JSONSchema{Type: "object"},
				}},
			})
		case "tools/call":
			resp = registry.NewResponse(req.ID, registry.ToolResult{
				Content: []registry.ContentBlock{{Type: "text", Text: "pong"}},
			})
		default:
			resp = registry.NewErrorResponse(req.ID, registry.MethodNotFound, "unknown method: "+req.Method)
		}

		data, _ := json.Marshal(resp)
		fmt.Println(string(data))
	}
}
