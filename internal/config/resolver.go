package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/please-dev/please-gateway/internal/index"
)

// Resolver locates and loads the three scoped config files rooted at a
// given working directory and home directory.
type Resolver struct {
	homeDir string
	cwd     string
}

// NewResolver builds a Resolver against the given home and working
// directories. Pass "" for either to use os.UserHomeDir/os.Getwd.
func NewResolver(homeDir, cwd string) (*Resolver, error) {
	if homeDir == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		homeDir = h
	}
	if cwd == "" {
		c, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		cwd = c
	}
	return &Resolver{homeDir: homeDir, cwd: cwd}, nil
}

// Path returns the on-disk path for the given scope:
// user = $HOME/.please/mcp.json; project = <cwd>/.please/mcp.json;
// local = <cwd>/.please/mcp.local.json.
func (r *Resolver) Path(scope Scope) string {
	switch scope {
	case ScopeUser:
		return filepath.Join(r.homeDir, ".please", "mcp.json")
	case ScopeProject:
		return filepath.Join(r.cwd, ".please", "mcp.json")
	case ScopeLocal:
		return filepath.Join(r.cwd, ".please", "mcp.local.json")
	default:
		return ""
	}
}

// Load reads and parses the config file for scope. A missing file
// yields an empty config with no error. A parse failure is also
// treated as "file absent" (it is not a load error here, since it will
// surface elsewhere as missing servers).
func (r *Resolver) Load(scope Scope) (FileConfig, error) {
	data, err := os.ReadFile(r.Path(scope))
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, err
	}

	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return FileConfig{}, nil
	}
	return cfg, nil
}

// LoadAll loads every scope in AllScopes and returns them keyed by scope.
func (r *Resolver) LoadAll() (map[Scope]FileConfig, error) {
	out := make(map[Scope]FileConfig, len(AllScopes))
	for _, s := range AllScopes {
		cfg, err := r.Load(s)
		if err != nil {
			return nil, err
		}
		out[s] = cfg
	}
	return out, nil
}

// ScopesFor returns which scopes a build of the given index scope
// should consider: user-scoped builds see only the user file;
// project-scoped builds see all three.
func ScopesFor(indexScope Scope) []Scope {
	if indexScope == ScopeUser {
		return []Scope{ScopeUser}
	}
	return AllScopes
}

// Merge combines the given scopes' configs into one name→upstream map
// with user ⊂ project ⊂ local precedence: last writer wins on a
// server-name collision. Only the scopes present in `configs` are
// consulted, walked in AllScopes order.
func Merge(configs map[Scope]FileConfig, scopes []Scope) []NamedUpstream {
	byName := make(map[string]NamedUpstream)
	var order []string

	for _, scope := range AllScopes {
		if !containsScope(scopes, scope) {
			continue
		}
		cfg, ok := configs[scope]
		if !ok {
			continue
		}
		for name, up := range cfg.MCPServers {
			if _, seen := byName[name]; !seen {
				order = append(order, name)
			}
			byName[name] = NamedUpstream{Name: name, Scope: scope, Config: up}
		}
	}

	out := make([]NamedUpstream, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	return out
}

func containsScope(scopes []Scope, s Scope) bool {
	for _, c := range scopes {
		if c == s {
			return true
		}
	}
	return false
}

// Save writes cfg to scope's file, creating its directory if needed.
// For ScopeLocal, the file is also appended to the directory's
// .gitignore, so a developer's local overrides never land in version
// control.
func (r *Resolver) Save(scope Scope, cfg FileConfig) error {
	path := r.Path(scope)
	if path == "" {
		return fmt.Errorf("config: unknown scope %q", scope)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create %s: %w", filepath.Dir(path), err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}

	if scope == ScopeLocal {
		if err := ignoreLocalFile(filepath.Dir(path), filepath.Base(path)); err != nil {
			return err
		}
	}
	return nil
}

// AddUpstream loads scope, sets name to up, and saves it back.
func (r *Resolver) AddUpstream(scope Scope, name string, up UpstreamConfig) error {
	cfg, err := r.Load(scope)
	if err != nil {
		return err
	}
	if cfg.MCPServers == nil {
		cfg.MCPServers = map[string]UpstreamConfig{}
	}
	cfg.MCPServers[name] = up
	return r.Save(scope, cfg)
}

// RemoveUpstream loads scope, deletes name if present, and saves it
// back. Removing a name that isn't present is not an error.
func (r *Resolver) RemoveUpstream(scope Scope, name string) error {
	cfg, err := r.Load(scope)
	if err != nil {
		return err
	}
	delete(cfg.MCPServers, name)
	return r.Save(scope, cfg)
}

// ignoreLocalFile appends filename to dir/.gitignore, creating it if
// absent and skipping the append if the entry is already present.
func ignoreLocalFile(dir, filename string) error {
	gitignore := filepath.Join(dir, ".gitignore")
	data, err := os.ReadFile(gitignore)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("config: read %s: %w", gitignore, err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == filename {
			return nil
		}
	}

	f, err := os.OpenFile(gitignore, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("config: open %s: %w", gitignore, err)
	}
	defer f.Close()

	prefix := ""
	if len(data) > 0 && !strings.HasSuffix(string(data), "\n") {
		prefix = "\n"
	}
	_, err = f.WriteString(prefix + filename + "\n")
	return err
}

// Fingerprints computes the ConfigFingerprint for every scope in
// scopes, using internal/index's SHA-256 fingerprinting.
func (r *Resolver) Fingerprints(scopes []Scope) (map[string]index.ConfigFingerprint, error) {
	out := make(map[string]index.ConfigFingerprint, len(scopes))
	for _, s := range scopes {
		fp, err := index.FingerprintFile(r.Path(s))
		if err != nil {
			return nil, err
		}
		out[string(s)] = fp
	}
	return out, nil
}
