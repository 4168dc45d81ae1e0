package ideinstall

import (
	"os"
	"path/filepath"
)

// VSCode configures VS Code's user-level mcp.json.
type VSCode struct{}

func (v *VSCode) Configure(binaryPath string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	vscodeDir := filepath.Join(home, ".vscode")
	if err := os.MkdirAll(vscodeDir, 0755); err != nil {
		return err
	}
	path := filepath.Join(vscodeDir, "mcp.json")

	cfg, err := readMCPServersFile(path)
	if err != nil {
		return err
	}
	cfg.McpServers[ServerName] = stdioServerEntry(binaryPath)
	return writeJSONFile(path, cfg)
}
