// Package executor resolves a fully-qualified (prefixed) tool name to
// its upstream server, acquires credentials, and dispatches the call
// through the MCP Transport Client. It is deliberately not reachable
// from the gateway's MCP surface: execution is a CLI-side operation so
// host-side permission policy stays in front of it.
package executor

import (
	"context"
	"fmt"

	"github.com/please-dev/please-gateway/internal/config"
	"github.com/please-dev/please-gateway/internal/index"
	"github.com/please-dev/please-gateway/internal/mcpclient"
	"github.com/please-dev/please-gateway/internal/oauthflow"
	"github.com/please-dev/please-gateway/internal/oauthstore"
	"github.com/please-dev/please-gateway/internal/registry"
)

// Kind discriminates an Outcome's failure mode. KindSuccess means the
// call reached the upstream and returned a result; the zero value ""
// matches no kind.
type Kind string

const (
	KindSuccess             Kind = "SUCCESS"
	KindToolNotFound        Kind = "TOOL_NOT_FOUND"
	KindMetadataMissing     Kind = "METADATA_MISSING"
	KindServerNotConfigured Kind = "SERVER_NOT_CONFIGURED"
	KindAuthRequired        Kind = "AUTH_REQUIRED"
	KindExecutionFailed     Kind = "EXECUTION_FAILED"
)

// Outcome is the discriminated result of one Execute call: a kind, a
// message, and where applicable a hint naming the CLI verb that
// remediates it.
type Outcome struct {
	Kind    Kind
	Message string
	Hint    string
	Result  *registry.ToolResult
}

// Succeeded reports whether the upstream was reached at all. It does
// not imply the tool call itself succeeded; check Result.IsError.
func (o Outcome) Succeeded() bool {
	return o.Kind == KindSuccess
}

func failure(kind Kind, hint, format string, args ...interface{}) Outcome {
	return Outcome{Kind: kind, Message: fmt.Sprintf(format, args...), Hint: hint}
}

// Executor dispatches calls against a merged tool index and its
// backing upstream configs.
type Executor struct {
	tools       []index.IndexedTool
	upstreams   map[string]config.UpstreamConfig
	oauthStore  *oauthstore.Store
	openBrowser func(string) error
}

// New builds an Executor over tools (the merged index's tool list) and
// upstreams (the merged, name-keyed upstream configs discovery would
// have used to produce that index).
func New(tools []index.IndexedTool, upstreams map[string]config.UpstreamConfig, oauthStore *oauthstore.Store, openBrowser func(string) error) *Executor {
	return &Executor{tools: tools, upstreams: upstreams, oauthStore: oauthStore, openBrowser: openBrowser}
}

// Execute resolves prefixedName in the index, resolves its upstream's
// credentials, and dispatches arguments against it using the tool's
// original (un-prefixed) name.
func (e *Executor) Execute(ctx context.Context, prefixedName string, arguments map[string]interface{}) Outcome {
	def, ok := e.lookup(prefixedName)
	if !ok {
		return failure(KindToolNotFound, "", "tool not found in index: %s", prefixedName)
	}

	server, original, ok := registry.Provenance(def.Metadata)
	if !ok {
		return failure(KindMetadataMissing, "please index --force", "tool %q carries no provenance metadata; the index may be stale", prefixedName)
	}

	upstream, ok := e.upstreams[server]
	if !ok {
		return failure(KindServerNotConfigured, "please mcp list", "tool %q references unknown server %q", prefixedName, server)
	}

	token, err := e.resolveAuth(ctx, server, upstream)
	if err != nil {
		return failure(KindAuthRequired, fmt.Sprintf("please mcp auth %s", server), "%s", err.Error())
	}

	client := mcpclient.New(toServerConfig(upstream, token))
	if err := client.Connect(ctx); err != nil {
		return failure(KindExecutionFailed, fmt.Sprintf("please mcp get %s", server), "connecting to %q: %v", server, err)
	}
	defer client.Close()

	result, err := client.CallTool(ctx, original, arguments)
	if err != nil {
		return failure(KindExecutionFailed, "", "calling %q on %q: %v", original, server, err)
	}

	return Outcome{Kind: KindSuccess, Result: result}
}

func (e *Executor) lookup(name string) (registry.ToolDefinition, bool) {
	for _, t := range e.tools {
		if t.Tool.Name == name {
			return t.Tool, true
		}
	}
	return registry.ToolDefinition{}, false
}

// resolveAuth mirrors internal/discovery.Engine.resolveAuth: bearer
// tokens pass through; oauth2 requires an already-established session
// (a missing session is reported, not logged into) and hands it to
// GetAccessToken, which refreshes it near expiry and runs the full
// authorization flow when that refresh fails or an expired token has no
// refresh token; none/default needs no credential.
func (e *Executor) resolveAuth(ctx context.Context, server string, cfg config.UpstreamConfig) (string, error) {
	switch cfg.Authorization.Type {
	case config.AuthBearer:
		return cfg.Authorization.Token, nil
	case config.AuthOAuth2:
		identity := serverIdentity(cfg)
		if e.oauthStore == nil || !e.oauthStore.HasSession(identity) {
			return "", fmt.Errorf("no usable OAuth session for %q", server)
		}
		mgr := oauthflow.NewManager(identity, oauthScopes(cfg), e.oauthStore, e.openBrowser)
		return mgr.GetAccessToken(ctx)
	default:
		return "", nil
	}
}

func serverIdentity(cfg config.UpstreamConfig) string {
	if cfg.Authorization.OAuth != nil && cfg.Authorization.OAuth.Resource != "" {
		return cfg.Authorization.OAuth.Resource
	}
	return cfg.URL
}

func oauthScopes(cfg config.UpstreamConfig) []string {
	if cfg.Authorization.OAuth == nil {
		return nil
	}
	return cfg.Authorization.OAuth.Scopes
}

func toServerConfig(cfg config.UpstreamConfig, token string) mcpclient.ServerConfig {
	var transport mcpclient.TransportKind
	switch cfg.Transport {
	case "http":
		transport = mcpclient.TransportHTTP
	case "sse":
		transport = mcpclient.TransportSSE
	case "stdio":
		transport = mcpclient.TransportStdio
	}
	return mcpclient.ServerConfig{
		Transport:   transport,
		Command:     cfg.Command,
		Args:        cfg.Args,
		Env:         cfg.Env,
		URL:         cfg.URL,
		AccessToken: token,
	}
}
