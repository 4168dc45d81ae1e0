package mcpcatalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEntry(t *testing.T, dir, filename, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(contents), 0o644))
}

func TestCatalog_MissingDirIsEmpty(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "does-not-exist"))
	entries, err := c.List()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCatalog_LoadsAndGets(t *testing.T) {
	dir := t.TempDir()
	writeEntry(t, dir, "github.json", `{
		"name": "github",
		"title": "GitHub",
		"description": "Issues, PRs, and repo search",
		"category": "development",
		"source": "official",
		"runtime": {"transport": "stdio", "command": "npx", "args": ["-y", "github-mcp"]}
	}`)

	c := New(dir)
	entries, err := c.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "github", entries[0].Name)

	got, err := c.Get("github")
	require.NoError(t, err)
	assert.Equal(t, "npx", got.Runtime.Command)
}

func TestCatalog_LoadsYAMLEntries(t *testing.T) {
	dir := t.TempDir()
	writeEntry(t, dir, "postgres.yaml", `
name: postgres
title: Postgres
description: Query and inspect Postgres databases
category: database
source: community
runtime:
  transport: stdio
  command: uvx
  args: ["postgres-mcp"]
`)

	c := New(dir)
	entries, err := c.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "postgres", entries[0].Name)

	got, err := c.Get("postgres")
	require.NoError(t, err)
	assert.Equal(t, "uvx", got.Runtime.Command)
}

func TestCatalog_MixesJSONAndYAML(t *testing.T) {
	dir := t.TempDir()
	writeEntry(t, dir, "github.json", `{
		"name": "github",
		"title": "GitHub",
		"description": "Issues, PRs, and repo search",
		"runtime": {"transport": "stdio", "command": "npx"}
	}`)
	writeEntry(t, dir, "postgres.yml", `
name: postgres
title: Postgres
description: Query Postgres
runtime:
  command: uvx
`)

	c := New(dir)
	entries, err := c.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "github", entries[0].Name)
	assert.Equal(t, "postgres", entries[1].Name)
}

func TestCatalog_GetUnknownErrors(t *testing.T) {
	c := New(t.TempDir())
	_, err := c.Get("nope")
	assert.Error(t, err)
}

func TestToUpstreamConfig_Stdio(t *testing.T) {
	e := Entry{Runtime: Runtime{Transport: "stdio", Command: "npx", Args: []string{"-y", "foo"}}}
	up := ToUpstreamConfig(e)
	assert.Equal(t, "npx", up.Command)
	assert.Equal(t, []string{"-y", "foo"}, up.Args)
	assert.Equal(t, "none", string(up.Authorization.Type))
}

func TestToUpstreamConfig_OAuth2(t *testing.T) {
	e := Entry{
		Runtime: Runtime{Transport: "http", URL: "https://example.com/mcp"},
		Auth: &Authorization{
			Type:  AuthOAuth2,
			OAuth: &OAuthHint{Scopes: []string{"read"}, Resource: "https://example.com"},
		},
	}
	up := ToUpstreamConfig(e)
	assert.Equal(t, "oauth2", string(up.Authorization.Type))
	require.NotNil(t, up.Authorization.OAuth)
	assert.Equal(t, []string{"read"}, up.Authorization.OAuth.Scopes)
}

func TestValidate_RejectsMissingRuntime(t *testing.T) {
	e := &Entry{Name: "foo", Title: "Foo", Description: "does things"}
	result := Validate(e)
	assert.False(t, result.Valid)
}

func TestValidate_RejectsBothCommandAndURL(t *testing.T) {
	e := &Entry{
		Name: "foo", Title: "Foo", Description: "does things",
		Runtime: Runtime{Command: "npx", URL: "https://example.com"},
	}
	result := Validate(e)
	assert.False(t, result.Valid)
}

func TestValidate_AcceptsWellFormedStdioEntry(t *testing.T) {
	e := &Entry{
		Name: "github", Title: "GitHub", Description: "does things",
		Category: CategoryDevelopment, Source: SourceOfficial,
		Runtime: Runtime{Command: "npx"},
	}
	result := Validate(e)
	assert.True(t, result.Valid, "%+v", result.Errors)
}

func TestValidateFile_AcceptsYAML(t *testing.T) {
	dir := t.TempDir()
	writeEntry(t, dir, "github.yaml", `
name: github
title: GitHub
description: Issues, PRs, and repo search
category: development
source: official
runtime:
  command: npx
`)
	result, err := ValidateFile(filepath.Join(dir, "github.yaml"))
	require.NoError(t, err)
	assert.True(t, result.Valid, "%+v", result.Errors)
}

func TestValidateFile_RejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	writeEntry(t, dir, "broken.yaml", "name: [unterminated")
	result, err := ValidateFile(filepath.Join(dir, "broken.yaml"))
	require.NoError(t, err)
	assert.False(t, result.Valid)
}
