package oauthflow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Endpoints is the resolved set of OAuth endpoints for one authorization
// server.
type Endpoints struct {
	AuthorizationEndpoint string
	TokenEndpoint         string
	RegistrationEndpoint  string
	CodeChallengeMethods  []string
}

type protectedResourceMetadata struct {
	AuthorizationServers []string `json:"authorization_servers"`
}

type authorizationServerMetadata struct {
	AuthorizationEndpoint          string   `json:"authorization_endpoint"`
	TokenEndpoint                  string   `json:"token_endpoint"`
	RegistrationEndpoint           string   `json:"registration_endpoint"`
	CodeChallengeMethodsSupported  []string `json:"code_challenge_methods_supported"`
}

// DiscoverEndpoints resolves the OAuth endpoints for origin, in order:
// RFC 9728 protected-resource metadata naming an authorization server,
// then RFC 8414 authorization-server metadata directly on origin,
// falling back to hard-coded conventional paths if neither is reachable.
func DiscoverEndpoints(ctx context.Context, client *http.Client, origin string) (*Endpoints, error) {
	if authServer, ok := discoverProtectedResource(ctx, client, origin); ok {
		if ep, ok := discoverAuthorizationServerMetadata(ctx, client, authServer); ok {
			return ep, nil
		}
	}

	if ep, ok := discoverAuthorizationServerMetadata(ctx, client, origin); ok {
		return ep, nil
	}

	return &Endpoints{
		AuthorizationEndpoint: strings.TrimRight(origin, "/") + "/authorize",
		TokenEndpoint:         strings.TrimRight(origin, "/") + "/token",
		RegistrationEndpoint:  strings.TrimRight(origin, "/") + "/register",
	}, nil
}

func discoverProtectedResource(ctx context.Context, client *http.Client, origin string) (string, bool) {
	var meta protectedResourceMetadata
	if !fetchJSON(ctx, client, strings.TrimRight(origin, "/")+"/.well-known/oauth-protected-resource", &meta) {
		return "", false
	}
	if len(meta.AuthorizationServers) == 0 {
		return "", false
	}
	return meta.AuthorizationServers[0], true
}

func discoverAuthorizationServerMetadata(ctx context.Context, client *http.Client, origin string) (*Endpoints, bool) {
	var meta authorizationServerMetadata
	if !fetchJSON(ctx, client, strings.TrimRight(origin, "/")+"/.well-known/oauth-authorization-server", &meta) {
		return nil, false
	}
	if meta.AuthorizationEndpoint == "" || meta.TokenEndpoint == "" {
		return nil, false
	}
	return &Endpoints{
		AuthorizationEndpoint: meta.AuthorizationEndpoint,
		TokenEndpoint:         meta.TokenEndpoint,
		RegistrationEndpoint:  meta.RegistrationEndpoint,
		CodeChallengeMethods:  meta.CodeChallengeMethodsSupported,
	}, true
}

func fetchJSON(ctx context.Context, client *http.Client, endpoint string, out interface{}) bool {
	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}
	return json.NewDecoder(resp.Body).Decode(out) == nil
}

// SupportsS256 reports whether the discovered endpoints advertise S256
// PKCE support.
func (e *Endpoints) SupportsS256() bool {
	for _, m := range e.CodeChallengeMethods {
		if m == "S256" {
			return true
		}
	}
	return false
}

// Origin extracts the scheme://host[:port] origin from a full MCP server
// URL.
func Origin(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse server URL: %w", err)
	}
	return fmt.Sprintf("%s://%s", u.Scheme, u.Host), nil
}
