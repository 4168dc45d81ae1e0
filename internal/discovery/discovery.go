// Package discovery fans a merged set of upstream MCP server configs out
// to individual connections, resolving authentication for each, and
// reports per-upstream progress and results.
package discovery

import (
	"context"
	"fmt"

	"github.com/please-dev/please-gateway/internal/config"
	"github.com/please-dev/please-gateway/internal/mcpclient"
	"github.com/please-dev/please-gateway/internal/oauthflow"
	"github.com/please-dev/please-gateway/internal/oauthstore"
	"github.com/please-dev/please-gateway/internal/registry"
)

// Phase names one step of a single upstream's discovery pass, reported
// through Progress.
type Phase string

const (
	PhaseConnecting     Phase = "connecting"
	PhaseAuthenticating Phase = "authenticating"
	PhaseFetching       Phase = "fetching"
	PhaseDone           Phase = "done"
	PhaseError          Phase = "error"
)

// ProgressFunc is invoked as each upstream advances through its phases.
// err is only non-nil on PhaseError.
type ProgressFunc func(upstream string, phase Phase, err error)

// UpstreamResult is one upstream's outcome: exactly one of Tools or Err
// is set.
type UpstreamResult struct {
	Name  string
	Scope config.Scope
	Tools []registry.ToolDefinition
	Err   error
}

// Engine runs a discovery pass over a merged upstream set.
type Engine struct {
	oauthStore *oauthstore.Store
	openBrowser func(string) error
}

// NewEngine builds an Engine backed by the given OAuth session store.
// openBrowser may be nil to fall back to printing the authorization URL.
func NewEngine(oauthStore *oauthstore.Store, openBrowser func(string) error) *Engine {
	return &Engine{oauthStore: oauthStore, openBrowser: openBrowser}
}

// Run queries every upstream in order, skipping any name in exclude.
// Upstreams are queried sequentially to bound process and file
// descriptor pressure, and a failing upstream does not abort the pass.
// ctx cancellation is honored between upstreams, not mid-upstream.
func (e *Engine) Run(ctx context.Context, upstreams []config.NamedUpstream, exclude map[string]bool, progress ProgressFunc) []UpstreamResult {
	if progress == nil {
		progress = func(string, Phase, error) {}
	}

	results := make([]UpstreamResult, 0, len(upstreams))
	for _, u := range upstreams {
		if exclude[u.Name] {
			continue
		}
		select {
		case <-ctx.Done():
			results = append(results, UpstreamResult{Name: u.Name, Scope: u.Scope, Err: ctx.Err()})
			continue
		default:
		}

		results = append(results, e.discoverOne(ctx, u, progress))
	}
	return results
}

func (e *Engine) discoverOne(ctx context.Context, u config.NamedUpstream, progress ProgressFunc) UpstreamResult {
	progress(u.Name, PhaseConnecting, nil)

	progress(u.Name, PhaseAuthenticating, nil)
	token, err := e.resolveAuth(ctx, u)
	if err != nil {
		progress(u.Name, PhaseError, err)
		return UpstreamResult{Name: u.Name, Scope: u.Scope, Err: err}
	}

	client := mcpclient.New(toServerConfig(u.Config, token))
	if err := client.Connect(ctx); err != nil {
		progress(u.Name, PhaseError, err)
		return UpstreamResult{Name: u.Name, Scope: u.Scope, Err: err}
	}
	defer client.Close()

	progress(u.Name, PhaseFetching, nil)
	tools, err := client.ListTools(ctx)
	if err != nil {
		progress(u.Name, PhaseError, err)
		return UpstreamResult{Name: u.Name, Scope: u.Scope, Err: err}
	}

	adorned := make([]registry.ToolDefinition, len(tools))
	for i, t := range tools {
		adorned[i] = registry.WithProvenance(t, u.Name)
	}

	progress(u.Name, PhaseDone, nil)
	return UpstreamResult{Name: u.Name, Scope: u.Scope, Tools: adorned}
}

// resolveAuth computes the credential to use for one upstream: OAuth2
// upstreams without a usable session error out with guidance naming the
// `mcp auth` CLI verb rather than attempting an interactive login
// mid-discovery-pass.
func (e *Engine) resolveAuth(ctx context.Context, u config.NamedUpstream) (string, error) {
	switch u.Config.Authorization.Type {
	case config.AuthBearer:
		return u.Config.Authorization.Token, nil
	case config.AuthOAuth2:
		if e.oauthStore == nil || !e.oauthStore.HasSession(serverIdentity(u.Config)) {
			return "", fmt.Errorf("no usable OAuth session for %q: run `please mcp auth %s`", u.Name, u.Name)
		}
		mgr := oauthflow.NewManager(serverIdentity(u.Config), oauthScopes(u.Config), e.oauthStore, e.openBrowser)
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
