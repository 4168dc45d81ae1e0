package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_LoadMissingScopeYieldsEmptyConfig(t *testing.T) {
	r, err := NewResolver(t.TempDir(), t.TempDir())
	require.NoError(t, err)

	cfg, err := r.Load(ScopeUser)
	require.NoError(t, err)
	assert.Empty(t, cfg.MCPServers)
}

func TestResolver_AddUpstreamThenLoadRoundTrips(t *testing.T) {
	r, err := NewResolver(t.TempDir(), t.TempDir())
	require.NoError(t, err)

	up := UpstreamConfig{Command: "npx", Args: []string{"some-server"}}
	require.NoError(t, r.AddUpstream(ScopeUser, "demo", up))

	cfg, err := r.Load(ScopeUser)
	require.NoError(t, err)
	require.Contains(t, cfg.MCPServers, "demo")
	assert.Equal(t, "npx", cfg.MCPServers["demo"].Command)
}

func TestResolver_RemoveUpstream(t *testing.T) {
	r, err := NewResolver(t.TempDir(), t.TempDir())
	require.NoError(t, err)

	require.NoError(t, r.AddUpstream(ScopeProject, "demo", UpstreamConfig{Command: "x"}))
	require.NoError(t, r.RemoveUpstream(ScopeProject, "demo"))

	cfg, err := r.Load(ScopeProject)
	require.NoError(t, err)
	assert.NotContains(t, cfg.MCPServers, "demo")
}

func TestResolver_SaveLocalScopeAppendsGitignore(t *testing.T) {
	cwd := t.TempDir()
	r, err := NewResolver(t.TempDir(), cwd)
	require.NoError(t, err)

	require.NoError(t, r.AddUpstream(ScopeLocal, "demo", UpstreamConfig{Command: "x"}))

	data, err := os.ReadFile(filepath.Join(cwd, ".please", ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "mcp.local.json")
}

func TestResolver_SaveLocalScopeDoesNotDuplicateGitignoreEntry(t *testing.T) {
	cwd := t.TempDir()
	r, err := NewResolver(t.TempDir(), cwd)
	require.NoError(t, err)

	require.NoError(t, r.AddUpstream(ScopeLocal, "a", UpstreamConfig{Command: "x"}))
	require.NoError(t, r.AddUpstream(ScopeLocal, "b", UpstreamConfig{Command: "y"}))

	data, err := os.ReadFile(filepath.Join(cwd, ".please", ".gitignore"))
	require.NoError(t, err)
	count := 0
	for _, line := range splitLines(string(data)) {
		if line == "mcp.local.json" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestMerge_ProjectOverridesUser(t *testing.T) {
	configs := map[Scope]FileConfig{
		ScopeUser:    {MCPServers: map[string]UpstreamConfig{"shared": {Command: "user-cmd"}}},
		ScopeProject: {MCPServers: map[string]UpstreamConfig{"shared": {Command: "project-cmd"}}},
	}
	merged := Merge(configs, []Scope{ScopeUser, ScopeProject})
	require.Len(t, merged, 1)
	assert.Equal(t, "project-cmd", merged[0].Config.Command)
}
