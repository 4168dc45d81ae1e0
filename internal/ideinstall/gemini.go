package ideinstall

import (
	"os"
	"path/filepath"
)

// Gemini configures Gemini CLI's settings.json.
type Gemini struct{}

func (g *Gemini) Configure(binaryPath string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	geminiDir := filepath.Join(home, ".gemini")
	if err := os.MkdirAll(geminiDir, 0755); err != nil {
		return err
	}
	path := filepath.Join(geminiDir, "settings.json")

	cfg, err := readMCPServersFile(path)
	if err != nil {
		return err
	}
	cfg.McpServers[ServerName] = stdioServerEntry(binaryPath)
	return writeJSONFile(path, cfg)
}
