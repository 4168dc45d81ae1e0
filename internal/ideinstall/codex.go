package ideinstall

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Codex configures OpenAI Codex's config.toml.
type Codex struct{}

func (c *Codex) Configure(binaryPath string) error {
	path, err := codexConfigPath()
	if err != nil {
		return err
	}

	var cfg map[string]interface{}
	if data, err := os.ReadFile(path); err == nil {
		toml.Unmarshal(data, &cfg)
	}
	if cfg == nil {
		cfg = map[string]interface{}{}
	}

	mcpServers, ok := cfg["mcp_servers"].(map[string]interface{})
	if !ok {
		mcpServers = map[string]interface{}{}
		cfg["mcp_servers"] = mcpServers
	}
	mcpServers[ServerName] = stdioServerEntry(binaryPath)

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("ideinstall: marshal %s: %w", path, err)
	}
	return os.WriteFile(path, data, 0644)
}

func codexConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	codexDir := filepath.Join(home, ".codex")
	if err := os.MkdirAll(codexDir, 0755); err != nil {
		return "", err
	}
	return filepath.Join(codexDir, "config.toml"), nil
}
