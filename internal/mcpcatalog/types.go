// Package mcpcatalog defines the schema for a community registry of
// known MCP server definitions and loads them from a local catalog
// directory, so `please mcp add --from-registry <name>` can populate an
// upstream config without the user hand-writing command/args/url.
//
// This is an enrichment on top of the core aggregation gateway: nothing
// in internal/config, internal/discovery, or internal/gateway depends on
// it, and an empty or absent catalog directory is not an error.
package mcpcatalog

// Entry is one server definition in the catalog: enough to populate a
// config.UpstreamConfig, plus display metadata for `mcp search-registry`.
type Entry struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Source      Source   `json:"source"`
	Tags        []string `json:"tags,omitempty"`
	Homepage    string   `json:"homepage,omitempty"`
	Repository  string   `json:"repository,omitempty"`

	Auth    *Authorization `json:"authorization,omitempty"`
	Runtime Runtime        `json:"runtime"`
}

// Category classifies an entry for browsing/filtering.
type Category string

const (
	CategoryDevelopment   Category = "development"
	CategoryDatabase      Category = "database"
	CategoryProductivity  Category = "productivity"
	CategoryCommunication Category = "communication"
	CategorySearch        Category = "search"
	CategoryCloud         Category = "cloud"
	CategoryAnalytics     Category = "analytics"
	CategoryAI            Category = "ai"
	CategoryUtility       Category = "utility"
	CategoryCustom        Category = "custom"
)

// Source indicates provenance of the catalog entry itself.
type Source string

const (
	SourceOfficial  Source = "official"
	SourceCommunity Source = "community"
	SourceLocal     Source = "local"
)

// AuthType is the entry's declared authentication method.
type AuthType string

const (
	AuthNone    AuthType = "none"
	AuthBearer  AuthType = "bearer"
	AuthOAuth2  AuthType = "oauth2"
)

// Authorization describes how a server obtained from the catalog
// authenticates, mirroring the shape config.Authorization ultimately
// needs plus a couple of catalog-only display hints.
type Authorization struct {
	Type        AuthType `json:"type"`
	DisplayName string   `json:"display_name,omitempty"`
	HelpURL     string   `json:"help_url,omitempty"`
	EnvVar      string   `json:"env_var,omitempty"`

	OAuth *OAuthHint `json:"oauth,omitempty"`
}

// OAuthHint carries the scopes/resource/authorization-server an oauth2
// catalog entry needs; the actual token exchange still goes through
// internal/oauthflow, discovered dynamically per RFC 9728/8414.
type OAuthHint struct {
	Scopes              []string `json:"scopes,omitempty"`
	Resource            string   `json:"resource,omitempty"`
	AuthorizationServer string   `json:"authorization_server,omitempty"`
}

// Runtime describes how to launch or reach the server.
type Runtime struct {
	Transport string            `json:"transport,omitempty"` // stdio|http|sse
	Command   string            `json:"command,omitempty"`
	Args      []string          `json:"args,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	URL       string            `json:"url,omitempty"`
}
