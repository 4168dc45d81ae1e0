package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRun(t *testing.T) {
	exitCode := run([]string{"non-existent-path"}, false, true)
	if exitCode != 1 {
		t.Errorf("expected exit code 1 for non-existent path, got %d", exitCode)
	}

	tmpDir, err := os.MkdirTemp("", "validate-registry-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	validJSON := `{
		"name": "test-mcp",
		"title": "Test MCP",
		"description": "A test MCP server",
		"category": "utility",
		"source": "local",
		"runtime": {
			"transport": "stdio",
			"command": "node",
			"args": ["index.js"]
		}
	}`

	invalidJSON := `{"name": "invalid-mcp"}`

	validPath := filepath.Join(tmpDir, "valid.json")
	if err := os.WriteFile(validPath, []byte(validJSON), 0644); err != nil {
		t.Fatalf("failed to write valid JSON: %v", err)
	}

	invalidPath := filepath.Join(tmpDir, "invalid.json")
	if err := os.WriteFile(invalidPath, []byte(invalidJSON), 0644); err != nil {
		t.Fatalf("failed to write invalid JSON: %v", err)
	}

	if exitCode := run([]string{validPath}, false, true); exitCode != 0 {
		t.Errorf("expected exit code 0 for valid JSON, got %d", exitCode)
	}

	if exitCode := run([]string{invalidPath}, false, true); exitCode != 1 {
		t.Errorf("expected exit code 1 for invalid JSON, got %d", exitCode)
	}

	if exitCode := run([]string{tmpDir}, false, true); exitCode != 1 {
		t.Errorf("expected exit code 1 for directory with an invalid entry, got %d", exitCode)
	}
}
