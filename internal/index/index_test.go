package index

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/please-dev/please-gateway/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTool(name, desc string) registry.ToolDefinition {
	return registry.ToolDefinition{
		Name:        name,
		Description: desc,
		InputSchema: &registry.JSONSchema{
			Type: "object",
			Properties: map[string]registry.PropertySchema{
				"filePath": {Type: "string", Description: "Path to the target file"},
			},
		},
	}
}

func TestSplitIdentifier(t *testing.T) {
	cases := map[string]string{
		"readFile":       "read file",
		"read_file":      "read file",
		"read-file":      "read file",
		"HTTPRequest":    "httprequest",
		"listPullRequests": "list pull requests",
	}
	for in, want := range cases {
		assert.Equal(t, want, splitIdentifier(in), "input %q", in)
	}
}

func TestTokenize_DropsStopWordsAndShortTokens(t *testing.T) {
	tokens := Tokenize("Read a File From The Disk, Please!")
	assert.NotContains(t, tokens, "a")
	assert.NotContains(t, tokens, "the")
	assert.Contains(t, tokens, "read")
	assert.Contains(t, tokens, "file")
	assert.Contains(t, tokens, "disk")
}

func TestSearchableText_IncludesSchemaProperties(t *testing.T) {
	def := sampleTool("readFile", "Reads a file from disk")
	text := SearchableText(def)
	assert.Contains(t, text, "read file")
	assert.Contains(t, text, "Reads a file from disk")
	assert.Contains(t, text, "file path")
	assert.Contains(t, text, "Path to the target file")
}

func TestBuild_WithoutEmbeddingProvider(t *testing.T) {
	defs := []registry.ToolDefinition{
		sampleTool("readFile", "Reads a file from disk"),
		sampleTool("writeFile", "Writes a file to disk"),
	}
	tools, stats, err := Build(context.Background(), defs, BuildOptions{})
	require.NoError(t, err)
	require.Len(t, tools, 2)
	assert.Nil(t, tools[0].Embedding)
	assert.Equal(t, 2, stats.TotalDocuments)
	assert.Greater(t, stats.AvgDocLength, 0.0)
	assert.Greater(t, stats.DocumentFrequencies["file"], 0)
}

func TestComputeBM25Stats_EmptyCorpus(t *testing.T) {
	stats := ComputeBM25Stats(nil)
	assert.Equal(t, 0, stats.TotalDocuments)
	assert.Equal(t, 0.0, stats.AvgDocLength)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "index.json"))

	require.NoError(t, store.CreateEmpty())
	assert.True(t, store.Exists())

	idx, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, idx.Version)
	assert.Empty(t, idx.Tools)

	idx.TotalTools = 1
	idx.Tools = []IndexedTool{{Tool: sampleTool("readFile", "Reads a file")}}
	require.NoError(t, store.Save(idx))

	reloaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.TotalTools)
	assert.Len(t, reloaded.Tools, 1)
}

func TestStore_MissingFileIsNotExists(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.json"))
	assert.False(t, store.Exists())
	_, err := store.Load()
	assert.Error(t, err)
}

func TestStore_MajorVersionMismatchHardFails(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "index.json"))
	require.NoError(t, store.Save(&PersistedIndex{Version: "2.0.0"}))

	_, err := store.Load()
	assert.Error(t, err)
	assert.False(t, store.Exists())
}

func TestShouldRegenerate_NotFound(t *testing.T) {
	result := ShouldRegenerate(RegenerationCheck{
		IndexPath: filepath.Join(t.TempDir(), "missing.json"),
	}, nil)
	assert.True(t, result.ShouldRebuild)
	assert.Contains(t, result.Reasons, "not found")
}

func TestShouldRegenerate_LegacyFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.json")
	store := NewStore(path)
	require.NoError(t, store.Save(&PersistedIndex{Version: CurrentVersion}))

	result := ShouldRegenerate(RegenerationCheck{IndexPath: path}, nil)
	assert.True(t, result.ShouldRebuild)
	assert.Contains(t, result.Reasons, "legacy format")
}

func TestShouldRegenerate_NoReasonWhenNothingChanged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.json")
	store := NewStore(path)

	meta := &BuildMetadata{
		CLIVersion: "1.0.0",
		CLIArgs:    CLIArgs{Mode: "hybrid", Provider: "local:general", Exclude: []string{"b", "a"}},
		ConfigFingerprints: map[string]ConfigFingerprint{
			"user": {Exists: true, Hash: "abc"},
		},
	}
	require.NoError(t, store.Save(&PersistedIndex{Version: CurrentVersion, BuildMetadata: meta}))

	result := ShouldRegenerate(RegenerationCheck{
		IndexPath:  path,
		CLIVersion: "1.0.0",
		CLIArgs:    CLIArgs{Mode: "hybrid", Provider: "local:general", Exclude: []string{"a", "b"}},
	}, map[string]ConfigFingerprint{"user": {Exists: true, Hash: "abc"}})

	assert.False(t, result.ShouldRebuild)
	assert.Empty(t, result.Reasons)
}

func TestShouldRegenerate_ExcludeListOrderIrrelevant(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.json")
	store := NewStore(path)
	require.NoError(t, store.Save(&PersistedIndex{
		Version: CurrentVersion,
		BuildMetadata: &BuildMetadata{
			CLIArgs: CLIArgs{Exclude: []string{"x", "y", "z"}},
		},
	}))

	result := ShouldRegenerate(RegenerationCheck{
		IndexPath: path,
		CLIArgs:   CLIArgs{Exclude: []string{"z", "x", "y"}},
	}, nil)
	assert.False(t, result.ShouldRebuild)
}

func TestShouldRegenerate_FingerprintTransitions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.json")
	store := NewStore(path)
	require.NoError(t, store.Save(&PersistedIndex{
		Version: CurrentVersion,
		BuildMetadata: &BuildMetadata{
			ConfigFingerprints: map[string]ConfigFingerprint{
				"user":    {Exists: true, Hash: "same"},
				"project": {Exists: false},
				"local":   {Exists: true, Hash: "old"},
			},
		},
	}))

	result := ShouldRegenerate(RegenerationCheck{IndexPath: path}, map[string]ConfigFingerprint{
		"user":    {Exists: true, Hash: "same"},
		"project": {Exists: true, Hash: "new"},
		"local":   {Exists: false},
	})

	assert.True(t, result.ShouldRebuild)
	assert.Contains(t, result.Reasons, "project config added")
	assert.Contains(t, result.Reasons, "local config removed")
}

func TestFingerprintFile_MissingIsAbsent(t *testing.T) {
	fp, err := FingerprintFile(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.False(t, fp.Exists)
}
