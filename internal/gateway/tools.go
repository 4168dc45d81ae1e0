package gateway

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/please-dev/please-gateway/internal/registry"
	"github.com/please-dev/please-gateway/internal/search"
)

// SearchToolsResult is search_tools's response payload.
type SearchToolsResult struct {
	Tools        []search.Result `json:"tools"`
	Total        int             `json:"total"`
	SearchTimeMs float64         `json:"searchTimeMs"`
}

// SearchTools routes to the orchestrator and shapes its response.
func (s *Server) SearchTools(ctx context.Context, query, mode string, topK int, threshold float64) (*SearchToolsResult, error) {
	resp, err := s.orchestrator.Search(ctx, search.Request{
		Query: query, Mode: mode, TopK: topK, Threshold: threshold,
	}, s.index.Tools)
	if err != nil {
		return nil, err
	}
	return &SearchToolsResult{Tools: resp.Tools, Total: len(resp.Tools), SearchTimeMs: resp.SearchTimeMs}, nil
}

// ListedTool is one entry in list_tools's paginated response.
type ListedTool struct {
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description"`
}

// ListToolsResult is list_tools's response payload.
type ListToolsResult struct {
	Tools  []ListedTool `json:"tools"`
	Total  int          `json:"total"`
	Offset int          `json:"offset"`
	Limit  int          `json:"limit"`
}

// ListTools paginates over the merged index in stored order.
func (s *Server) ListTools(limit, offset int) *ListToolsResult {
	tools := s.index.Tools
	total := len(tools)

	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	page := make([]ListedTool, 0, end-offset)
	for _, t := range tools[offset:end] {
		page = append(page, ListedTool{Name: t.Tool.Name, Title: t.Tool.Title, Description: t.Tool.Description})
	}

	return &ListToolsResult{Tools: page, Total: total, Offset: offset, Limit: limit}
}

// GetToolResult is get_tool's response payload.
type GetToolResult struct {
	Tool            registry.ToolDefinition `json:"tool"`
	CLIUsageTemplate string                 `json:"cliUsageTemplate"`
}

// GetTool returns a tool's full schema plus a CLI-usage template a host
// can delegate execution to.
func (s *Server) GetTool(name string) (*GetToolResult, error) {
	for _, t := range s.index.Tools {
		if t.Tool.Name == name {
			return &GetToolResult{Tool: t.Tool, CLIUsageTemplate: cliUsageTemplate(s.cliPackage, t.Tool)}, nil
		}
	}
	return nil, fmt.Errorf("tool not found: %s", name)
}

// cliUsageTemplate builds the "npx <package> <name> --args '<json>'"
// shell-command string, deriving one placeholder per required property.
func cliUsageTemplate(pkg string, def registry.ToolDefinition) string {
	placeholders := make(map[string]string)
	if def.InputSchema != nil {
		for _, prop := range def.InputSchema.Required {
			schema, ok := def.InputSchema.Properties[prop]
			if !ok {
				placeholders[prop] = "<value>"
				continue
			}
			placeholders[prop] = placeholderFor(schema)
		}
	}

	var required []string
	if def.InputSchema != nil {
		required = append([]string(nil), def.InputSchema.Required...)
	}
	sort.Strings(required)

	var pairs []string
	for _, r := range required {
		pairs = append(pairs, fmt.Sprintf("%q: %s", r, placeholders[r]))
	}
	argsJSON := "{" + strings.Join(pairs, ", ") + "}"

	return fmt.Sprintf("npx %s %s --args '%s'", pkg, def.Name, argsJSON)
}

// placeholderFor derives a human-readable placeholder token from a
// property's JSON-Schema shape: enum → first three values joined by
// "|" (with a trailing "|..." if truncated), string/number/boolean →
// their type name, otherwise a generic <value>.
func placeholderFor(schema registry.PropertySchema) string {
	if len(schema.Enum) > 0 {
		n := len(schema.Enum)
		shown := schema.Enum
		truncated := false
		if n > 3 {
			shown = schema.Enum[:3]
			truncated = true
		}
		label := strings.Join(shown, "|")
		if truncated {
			label += "|..."
		}
		return fmt.Sprintf("<%s>", label)
	}

	switch schema.Type {
	case "string":
		return "<string>"
	case "number", "integer":
		return "<number>"
	case "boolean":
		return "<true|false>"
	default:
		return "<value>"
	}
}

// ToolSearchInfoResult is tool_search_info's response payload.
type ToolSearchInfoResult struct {
	TotalTools    int      `json:"totalTools"`
	HasEmbeddings bool     `json:"hasEmbeddings"`
	AvailableModes []string `json:"availableModes"`
}

// ToolSearchInfo reports index metadata and which search modes the
// currently loaded index supports.
func (s *Server) ToolSearchInfo() ToolSearchInfoResult {
	modes := []string{"regex", "bm25"}
	if s.index.HasEmbeddings {
		modes = append(modes, "embedding", "hybrid")
	}
	return ToolSearchInfoResult{
		TotalTools:     len(s.index.Tools),
		HasEmbeddings:  s.index.HasEmbeddings,
		AvailableModes: modes,
	}
}
