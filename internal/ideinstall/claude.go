package ideinstall

import (
	"os"
	"path/filepath"
)

// ClaudeDesktop configures Claude Desktop's global MCP config.
type ClaudeDesktop struct{}

func (c *ClaudeDesktop) Configure(binaryPath string) error {
	path, err := claudeDesktopConfigPath()
	if err != nil {
		return err
	}

	cfg, err := readMCPServersFile(path)
	if err != nil {
		return err
	}
	cfg.McpServers[ServerName] = stdioServerEntry(binaryPath)
	return writeJSONFile(path, cfg)
}

func claudeDesktopConfigPath() (string, error) {
	appData := os.Getenv("APPDATA")
	if appData == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		appData = filepath.Join(home, "AppData", "Roaming")
	}

	path := filepath.Join(appData, "Claude", "claude_desktop_config.json")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	return path, nil
}

// ClaudeCode configures Claude Code's user-level settings file.
type ClaudeCode struct{}

func (c *ClaudeCode) Configure(binaryPath string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	path := filepath.Join(home, ".claude", "settings.json")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	cfg, err := readMCPServersFile(path)
	if err != nil {
		return err
	}
	cfg.McpServers[ServerName] = stdioServerEntry(binaryPath)
	return writeJSONFile(path, cfg)
}
