package ideinstall

import (
	"os"
	"path/filepath"
)

// Cursor configures Cursor's mcp.json.
type Cursor struct{}

func (c *Cursor) Configure(binaryPath string) error {
	path, err := cursorConfigPath()
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

func cursorConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	candidates := []string{
		filepath.Join(home, ".cursor", "mcp.json"),
		filepath.Join(os.Getenv("APPDATA"), "Cursor", "User", "globalStorage", "mcp.json"),
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	cursorDir := filepath.Join(home, ".cursor")
	if err := os.MkdirAll(cursorDir, 0755); err != nil {
		return "", err
	}
	return filepath.Join(cursorDir, "mcp.json"), nil
}
