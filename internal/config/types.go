// Package config resolves the three JSON scopes of upstream MCP server
// configuration (user, project, local), merges them for discovery, and
// fingerprints each scope for the index's Regeneration Detector.
package config

// Scope names the three configuration files a deployment may carry.
type Scope string

const (
	ScopeUser    Scope = "user"
	ScopeProject Scope = "project"
	ScopeLocal   Scope = "local"
)

// AllScopes lists every scope in precedence order, weakest first.
var AllScopes = []Scope{ScopeUser, ScopeProject, ScopeLocal}

// AuthType names the authorization sum type an upstream config carries.
type AuthType string

const (
	AuthNone   AuthType = "none"
	AuthBearer AuthType = "bearer"
	AuthOAuth2 AuthType = "oauth2"
)

// OAuthConfig is the oauth2 variant's payload.
type OAuthConfig struct {
	Scopes              []string `json:"scopes,omitempty"`
	Resource            string   `json:"resource,omitempty"`
	AuthorizationServer string   `json:"authorizationServer,omitempty"`
}

// Authorization is the sum type governing how the gateway authenticates
// to a given upstream.
type Authorization struct {
	Type  AuthType     `json:"type"`
	Token string       `json:"token,omitempty"`
	OAuth *OAuthConfig `json:"oauth,omitempty"`
}

// UpstreamConfig describes one upstream MCP server as declared in a
// config file: either a stdio command or an http/sse URL.
type UpstreamConfig struct {
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`

	URL       string `json:"url,omitempty"`
	Transport string `json:"transport,omitempty"`

	Authorization Authorization `json:"authorization,omitempty"`
}

// FileConfig is the on-disk shape of one scope's JSON config file.
type FileConfig struct {
	MCPServers map[string]UpstreamConfig `json:"mcpServers"`
}

// NamedUpstream pairs an upstream config with the name and scope it was
// declared under, for provenance during discovery.
type NamedUpstream struct {
	Name   string
	Scope  Scope
	Config UpstreamConfig
}
