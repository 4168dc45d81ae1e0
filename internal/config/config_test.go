package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, path string, cfg FileConfig) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func TestResolver_PathsMatchScopeLayout(t *testing.T) {
	r, err := NewResolver("/home/u", "/repo")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/home/u", ".please", "mcp.json"), r.Path(ScopeUser))
	assert.Equal(t, filepath.Join("/repo", ".please", "mcp.json"), r.Path(ScopeProject))
	assert.Equal(t, filepath.Join("/repo", ".please", "mcp.local.json"), r.Path(ScopeLocal))
}

func TestResolver_Load_MissingFileIsEmptyNotError(t *testing.T) {
	home := t.TempDir()
	cwd := t.TempDir()
	r, err := NewResolver(home, cwd)
	require.NoError(t, err)

	cfg, err := r.Load(ScopeUser)
	require.NoError(t, err)
	assert.Empty(t, cfg.MCPServers)
}

func TestResolver_Load_CorruptJSONIsTreatedAsAbsent(t *testing.T) {
	home := t.TempDir()
	cwd := t.TempDir()
	path := filepath.Join(home, ".please", "mcp.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	r, err := NewResolver(home, cwd)
	require.NoError(t, err)

	cfg, err := r.Load(ScopeUser)
	require.NoError(t, err)
	assert.Empty(t, cfg.MCPServers)
}

func TestMerge_LastWriterWinsOnCollision(t *testing.T) {
	configs := map[Scope]FileConfig{
		ScopeUser: {MCPServers: map[string]UpstreamConfig{
			"search": {Command: "user-search"},
		}},
		ScopeProject: {MCPServers: map[string]UpstreamConfig{
			"search": {Command: "project-search"},
			"docs":   {Command: "docs-server"},
		}},
		ScopeLocal: {MCPServers: map[string]UpstreamConfig{
			"search": {Command: "local-search"},
		}},
	}

	merged := Merge(configs, AllScopes)
	byName := make(map[string]NamedUpstream)
	for _, u := range merged {
		byName[u.Name] = u
	}

	require.Contains(t, byName, "search")
	assert.Equal(t, "local-search", byName["search"].Config.Command)
	assert.Equal(t, ScopeLocal, byName["search"].Scope)
	require.Contains(t, byName, "docs")
}

func TestMerge_ScopeFilterRestrictsUserToUserOnly(t *testing.T) {
	configs := map[Scope]FileConfig{
		ScopeUser: {MCPServers: map[string]UpstreamConfig{
			"search": {Command: "user-search"},
		}},
		ScopeProject: {MCPServers: map[string]UpstreamConfig{
			"docs": {Command: "docs-server"},
		}},
	}

	merged := Merge(configs, ScopesFor(ScopeUser))
	require.Len(t, merged, 1)
	assert.Equal(t, "search", merged[0].Name)
}

func TestResolver_Fingerprints_AbsentAndPresent(t *testing.T) {
	home := t.TempDir()
	cwd := t.TempDir()
	writeConfigFile(t, filepath.Join(cwd, ".please", "mcp.json"), FileConfig{
		MCPServers: map[string]UpstreamConfig{"docs": {Command: "docs-server"}},
	})

	r, err := NewResolver(home, cwd)
	require.NoError(t, err)

	fps, err := r.Fingerprints(AllScopes)
	require.NoError(t, err)
	assert.False(t, fps["user"].Exists)
	assert.True(t, fps["project"].Exists)
	assert.NotEmpty(t, fps["project"].Hash)
	assert.False(t, fps["local"].Exists)
}

func TestEnsureIgnored_AppendsOnceAndIsIdempotent(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, EnsureIgnored(dir, "mcp.local.json"))
	require.NoError(t, EnsureIgnored(dir, "mcp.local.json"))

	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)

	count := 0
	for _, line := range splitLines(string(data)) {
		if line == "mcp.local.json" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i, c := range s {
		if c == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
