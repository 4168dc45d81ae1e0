package mcpcatalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/please-dev/please-gateway/internal/config"
	"gopkg.in/yaml.v3"
)

// Catalog is a directory of "*.json"/"*.yaml"/"*.yml" catalog entries,
// one server per file, loaded lazily and cached in memory.
type Catalog struct {
	dir     string
	entries map[string]Entry
	loaded  bool
}

// New returns a Catalog backed by dir. dir need not exist yet: an absent
// or empty catalog directory is a valid, empty catalog.
func New(dir string) *Catalog {
	return &Catalog{dir: dir}
}

func (c *Catalog) ensureLoaded() error {
	if c.loaded {
		return nil
	}
	entries := map[string]Entry{}

	files, err := os.ReadDir(c.dir)
	if os.IsNotExist(err) {
		c.entries = entries
		c.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("read catalog dir %s: %w", c.dir, err)
	}

	for _, f := range files {
		ext := filepath.Ext(f.Name())
		if f.IsDir() || (ext != ".json" && ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(c.dir, f.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		var e Entry
		var parseErr error
		if ext == ".json" {
			parseErr = json.Unmarshal(data, &e)
		} else {
			parseErr = yaml.Unmarshal(data, &e)
		}
		if parseErr != nil {
			return fmt.Errorf("parse %s: %w", path, parseErr)
		}

		if e.Name == "" {
			e.Name = strings.TrimSuffix(f.Name(), ext)
		}
		entries[e.Name] = e
	}

	c.entries = entries
	c.loaded = true
	return nil
}

// Get returns the named entry, or an error if the catalog has none by
// that name.
func (c *Catalog) Get(name string) (*Entry, error) {
	if err := c.ensureLoaded(); err != nil {
		return nil, err
	}
	e, ok := c.entries[name]
	if !ok {
		return nil, fmt.Errorf("no catalog entry named %q", name)
	}
	return &e, nil
}

// List returns every entry, sorted by name.
func (c *Catalog) List() ([]Entry, error) {
	if err := c.ensureLoaded(); err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Name < out[j-1].Name; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

// ToUpstreamConfig converts a catalog entry into the upstream config
// shape `mcp add`/the Config Resolver understand.
func ToUpstreamConfig(e Entry) config.UpstreamConfig {
	up := config.UpstreamConfig{
		Command:   e.Runtime.Command,
		Args:      e.Runtime.Args,
		Env:       e.Runtime.Env,
		URL:       e.Runtime.URL,
		Transport: e.Runtime.Transport,
	}

	if e.Auth == nil {
		up.Authorization = config.Authorization{Type: config.AuthNone}
		return up
	}

	switch e.Auth.Type {
	case AuthBearer:
		token := ""
		if e.Auth.EnvVar != "" {
			token = os.Getenv(e.Auth.EnvVar)
		}
		up.Authorization = config.Authorization{Type: config.AuthBearer, Token: token}
	case AuthOAuth2:
		oauth := &config.OAuthConfig{}
		if e.Auth.OAuth != nil {
			oauth.Scopes = e.Auth.OAuth.Scopes
			oauth.Resource = e.Auth.OAuth.Resource
			oauth.AuthorizationServer = e.Auth.OAuth.AuthorizationServer
		}
		up.Authorization = config.Authorization{Type: config.AuthOAuth2, OAuth: oauth}
	default:
		up.Authorization = config.Authorization{Type: config.AuthNone}
	}
	return up
}
