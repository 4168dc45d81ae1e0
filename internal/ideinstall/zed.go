package ideinstall

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Zed configures Zed's settings.json under its "context_servers" key.
type Zed struct{}

func (z *Zed) Configure(binaryPath string) error {
	path, err := zedConfigPath()
	if err != nil {
		return err
	}

	var cfg map[string]interface{}
	if data, err := os.ReadFile(path); err == nil {
		json.Unmarshal(data, &cfg)
	}
	if cfg == nil {
		cfg = map[string]interface{}{}
	}

	contextServers, ok := cfg["context_servers"].(map[string]interface{})
	if !ok {
		contextServers = map[string]interface{}{}
		cfg["context_servers"] = contextServers
	}
	contextServers[ServerName] = stdioServerEntry(binaryPath)

	return writeJSONFile(path, cfg)
}

func zedConfigPath() (string, error) {
	if appData := os.Getenv("APPDATA"); appData != "" {
		path := filepath.Join(appData, "Zed", "settings.json")
		if _, err := os.Stat(filepath.Dir(path)); err == nil {
			return path, nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	candidates := []string{
		filepath.Join(home, ".config", "zed", "settings.json"),
		filepath.Join(home, "Library", "Application Support", "Zed", "settings.json"),
	}
	for _, p := range candidates {
		if _, err := os.Stat(filepath.Dir(p)); err == nil {
			return p, nil
		}
	}

	zedDir := filepath.Join(home, ".config", "zed")
	if err := os.MkdirAll(zedDir, 0755); err != nil {
		return "", err
	}
	return filepath.Join(zedDir, "settings.json"), nil
}
