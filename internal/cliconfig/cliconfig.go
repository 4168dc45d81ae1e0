// Package cliconfig reads ~/.please/cli.toml to seed default CLI flag
// values before cobra parses argv, so a user can set e.g. a default
// search mode once instead of passing --mode on every invocation.
package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Defaults is the subset of CLI flags a user may pin in cli.toml.
type Defaults struct {
	Mode      string `toml:"mode,omitempty"`
	Format    string `toml:"format,omitempty"`
	Scope     string `toml:"scope,omitempty"`
	Provider  string `toml:"provider,omitempty"`
	Dtype     string `toml:"dtype,omitempty"`
	TopK      int    `toml:"top_k,omitempty"`
	Threshold float64 `toml:"threshold,omitempty"`
}

// Path returns the default location of the CLI's TOML config file.
func Path(homeDir string) string {
	return filepath.Join(homeDir, ".please", "cli.toml")
}

// Load reads and parses the TOML file at path. A missing file yields
// zero-value Defaults with no error, since flag defaults are optional.
func Load(path string) (Defaults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Defaults{}, nil
		}
		return Defaults{}, fmt.Errorf("cliconfig: read %s: %w", path, err)
	}

	var d Defaults
	if err := toml.Unmarshal(data, &d); err != nil {
		return Defaults{}, fmt.Errorf("cliconfig: parse %s: %w", path, err)
	}
	return d, nil
}
