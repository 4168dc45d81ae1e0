package gateway

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/please-dev/please-gateway/internal/index"
	"github.com/please-dev/please-gateway/internal/registry"
	"github.com/please-dev/please-gateway/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeIndex(t *testing.T, path string, defs []registry.ToolDefinition) {
	t.Helper()
	tools, stats, err := index.Build(context.Background(), defs, index.BuildOptions{})
	require.NoError(t, err)

	idx := &index.PersistedIndex{
		Version:    index.CurrentVersion,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
		TotalTools: len(tools),
		BM25Stats:  stats,
		Tools:      tools,
	}
	require.NoError(t, index.NewStore(path).Save(idx))
}

func newTestOrchestrator() *search.Orchestrator {
	o := search.NewOrchestrator("regex", 10)
	o.Register("regex", &search.RegexStrategy{})
	o.Register("bm25", search.NewBM25Strategy())
	return o
}

func requiredSchema(props map[string]registry.PropertySchema, required ...string) *registry.JSONSchema {
	return &registry.JSONSchema{Type: "object", Properties: props, Required: required}
}

func TestLoadMerged_SingleIndex(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.json")
	writeIndex(t, path, []registry.ToolDefinition{
		{Name: "docs__search", Description: "searches documentation"},
	})

	merged, err := LoadMerged(path)
	require.NoError(t, err)
	assert.Len(t, merged.Tools, 1)
}

func TestLoadMerged_TwoIndexesDedupWithProjectOverridingUser(t *testing.T) {
	userPath := filepath.Join(t.TempDir(), "user.json")
	projectPath := filepath.Join(t.TempDir(), "project.json")

	writeIndex(t, userPath, []registry.ToolDefinition{
		{Name: "shared", Description: "user version"},
		{Name: "only-user", Description: "user only"},
	})
	writeIndex(t, projectPath, []registry.ToolDefinition{
		{Name: "shared", Description: "project version"},
		{Name: "only-project", Description: "project only"},
	})

	merged, err := LoadMerged(userPath, projectPath)
	require.NoError(t, err)
	require.Len(t, merged.Tools, 3)

	byName := map[string]index.IndexedTool{}
	for _, tool := range merged.Tools {
		byName[tool.Tool.Name] = tool
	}
	assert.Equal(t, "project version", byName["shared"].Tool.Description)
	assert.Equal(t, 4, merged.BM25.TotalDocuments)
}

func TestCombineBM25_SumsAndWeightsCorrectly(t *testing.T) {
	a := index.BM25Stats{AvgDocLength: 10, TotalDocuments: 2, DocumentFrequencies: map[string]int{"search": 1}}
	b := index.BM25Stats{AvgDocLength: 20, TotalDocuments: 2, DocumentFrequencies: map[string]int{"search": 1, "docs": 2}}

	combined := combineBM25(a, b)
	assert.Equal(t, 4, combined.TotalDocuments)
	assert.InDelta(t, 15.0, combined.AvgDocLength, 0.001)
	assert.Equal(t, 2, combined.DocumentFrequencies["search"])
	assert.Equal(t, 2, combined.DocumentFrequencies["docs"])
}

func TestServer_DispatchListTools(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	writeIndex(t, path, []registry.ToolDefinition{
		{Name: "a", Description: "tool a"},
		{Name: "b", Description: "tool b"},
	})

	s := NewServer(newTestOrchestrator(), "please-cli", path)
	result, err := s.Dispatch(context.Background(), ToolListTools, map[string]interface{}{"limit": float64(1)})
	require.NoError(t, err)

	page := result.(*ListToolsResult)
	assert.Equal(t, 2, page.Total)
	assert.Len(t, page.Tools, 1)
}

func TestServer_DispatchGetTool_BuildsCLIUsageTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	writeIndex(t, path, []registry.ToolDefinition{
		{
			Name:        "search",
			Description: "runs a search",
			InputSchema: requiredSchema(map[string]registry.PropertySchema{
				"query": {Type: "string"},
				"mode":  {Type: "string", Enum: []string{"regex", "bm25", "embedding", "hybrid"}},
			}, "query", "mode"),
		},
	})

	s := NewServer(newTestOrchestrator(), "please-cli", path)
	result, err := s.Dispatch(context.Background(), ToolGetTool, map[string]interface{}{"name": "search"})
	require.NoError(t, err)

	got := result.(*GetToolResult)
	assert.Contains(t, got.CLIUsageTemplate, "npx please-cli search --args")
	assert.Contains(t, got.CLIUsageTemplate, `"mode": <regex|bm25|embedding|...>`)
	assert.Contains(t, got.CLIUsageTemplate, `"query": <string>`)
}

func TestServer_DispatchGetTool_NotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	writeIndex(t, path, nil)

	s := NewServer(newTestOrchestrator(), "please-cli", path)
	_, err := s.Dispatch(context.Background(), ToolGetTool, map[string]interface{}{"name": "missing"})
	assert.Error(t, err)
}

func TestServer_DispatchToolSearchInfo_ModesReflectEmbeddings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	writeIndex(t, path, []registry.ToolDefinition{{Name: "a", Description: "tool a"}})

	s := NewServer(newTestOrchestrator(), "please-cli", path)
	result, err := s.Dispatch(context.Background(), ToolSearchInfoName, nil)
	require.NoError(t, err)

	info := result.(ToolSearchInfoResult)
	assert.Equal(t, []string{"regex", "bm25"}, info.AvailableModes)
	assert.False(t, info.HasEmbeddings)
}

func TestServer_HandleRequest_InitializeAndToolsList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	writeIndex(t, path, []registry.ToolDefinition{{Name: "a", Description: "tool a"}})
	s := NewServer(newTestOrchestrator(), "please-cli", path)

	resp := s.HandleRequest(context.Background(), registry.JSONRPCRequest{JSONRPC: "2.0", ID: 1, Method: "initialize"})
	assert.Nil(t, resp.Error)

	resp = s.HandleRequest(context.Background(), registry.JSONRPCRequest{JSONRPC: "2.0", ID: 2, Method: "tools/list"})
	require.Nil(t, resp.Error)
	payload, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	assert.Contains(t, string(payload), ToolSearchTools)
}

func TestServer_HandleRequest_ToolsCallDispatchesSearchTools(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	writeIndex(t, path, []registry.ToolDefinition{{Name: "search-docs", Description: "searches the documentation corpus"}})
	s := NewServer(newTestOrchestrator(), "please-cli", path)

	params, _ := json.Marshal(map[string]interface{}{
		"name":      "search_tools",
		"arguments": map[string]interface{}{"query": "documentation", "mode": "bm25"},
	})
	resp := s.HandleRequest(context.Background(), registry.JSONRPCRequest{JSONRPC: "2.0", ID: 3, Method: "tools/call", Params: params})
	require.Nil(t, resp.Error)

	result := resp.Result.(registry.ToolResult)
	require.Len(t, result.Content, 1)
	assert.Contains(t, result.Content[0].Text, "searchTimeMs")
}

func TestServer_HandleRequest_UnknownMethod(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	writeIndex(t, path, nil)
	s := NewServer(newTestOrchestrator(), "please-cli", path)

	resp := s.HandleRequest(context.Background(), registry.JSONRPCRequest{JSONRPC: "2.0", ID: 4, Method: "nope"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, registry.MethodNotFound, resp.Error.Code)
}

func TestPlaceholderFor_TruncatesEnumAfterThree(t *testing.T) {
	p := placeholderFor(registry.PropertySchema{Enum: []string{"a", "b", "c", "d"}})
	assert.Equal(t, "<a|b|c|...>", p)
}
