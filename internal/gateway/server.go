package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/please-dev/please-gateway/internal/search"
)

// Server is the process-lifetime state a running gateway holds: the
// cached merged index and the search orchestrator built against it.
// Writes to the index invalidate the cache; the next request rebuilds
// it from disk.
type Server struct {
	mu           sync.RWMutex
	index        *MergedIndex
	orchestrator *search.Orchestrator
	paths        []string
	cliPackage   string
}

// NewServer builds a Server that lazily loads and caches the merged
// index at the given paths (one for a single scope, two for "all").
func NewServer(orchestrator *search.Orchestrator, cliPackage string, indexPaths ...string) *Server {
	return &Server{orchestrator: orchestrator, paths: indexPaths, cliPackage: cliPackage}
}

// Ensure loads the merged index if it has not been cached yet.
func (s *Server) Ensure() error {
	s.mu.RLock()
	loaded := s.index != nil
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	merged, err := LoadMerged(s.paths...)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.index = merged
	s.mu.Unlock()
	return nil
}

// Invalidate drops the cached merged index; the next request reloads it.
func (s *Server) Invalidate() {
	s.mu.Lock()
	s.index = nil
	s.mu.Unlock()
}

// Meta-tool names the gateway advertises to the host.
const (
	ToolSearchTools    = "search_tools"
	ToolListTools      = "list_tools"
	ToolGetTool        = "get_tool"
	ToolSearchInfoName = "tool_search_info"
)

// Dispatch routes one already-decoded MCP tools/call invocation to the
// matching meta-tool handler.
func (s *Server) Dispatch(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	if err := s.Ensure(); err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}

	switch name {
	case ToolSearchTools:
		query, _ := args["query"].(string)
		mode, _ := args["mode"].(string)
		topK := intArg(args, "top_k", 0)
		threshold := floatArg(args, "threshold", 0)
		return s.SearchTools(ctx, query, mode, topK, threshold)

	case ToolListTools:
		limit := intArg(args, "limit", 0)
		offset := intArg(args, "offset", 0)
		return s.ListTools(limit, offset), nil

	case ToolGetTool:
		toolName, _ := args["name"].(string)
		return s.GetTool(toolName)

	case ToolSearchInfoName:
		return s.ToolSearchInfo(), nil

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

func intArg(args map[string]interface{}, key string, def int) int {
	v, ok := args[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return def
	}
}

func floatArg(args map[string]interface{}, key string, def float64) float64 {
	v, ok := args[key]
	if !ok {
		return def
	}
	if f, ok := v.(float64); ok {
		return f
	}
	return def
}
