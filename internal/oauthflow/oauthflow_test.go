package oauthflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverEndpoints_FallsBackToHardcodedPaths(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	ep, err := DiscoverEndpoints(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/authorize", ep.AuthorizationEndpoint)
	assert.Equal(t, srv.URL+"/token", ep.TokenEndpoint)
	assert.Equal(t, srv.URL+"/register", ep.RegistrationEndpoint)
}

func TestDiscoverEndpoints_UsesAuthorizationServerMetadata(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/oauth-protected-resource", http.NotFound)
	mux.HandleFunc("/.well-known/oauth-authorization-server", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(authorizationServerMetadata{
			AuthorizationEndpoint:         "https://as.example/authorize",
			TokenEndpoint:                 "https://as.example/token",
			RegistrationEndpoint:          "https://as.example/register",
			CodeChallengeMethodsSupported: []string{"S256"},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ep, err := DiscoverEndpoints(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "https://as.example/authorize", ep.AuthorizationEndpoint)
	assert.True(t, ep.SupportsS256())
}

func TestDiscoverEndpoints_FollowsProtectedResourceToAuthServer(t *testing.T) {
	asMux := http.NewServeMux()
	asMux.HandleFunc("/.well-known/oauth-authorization-server", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(authorizationServerMetadata{
			AuthorizationEndpoint: "https://as.example/authorize",
			TokenEndpoint:         "https://as.example/token",
		})
	})
	asSrv := httptest.NewServer(asMux)
	defer asSrv.Close()

	rsMux := http.NewServeMux()
	rsMux.HandleFunc("/.well-known/oauth-protected-resource", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(protectedResourceMetadata{AuthorizationServers: []string{asSrv.URL}})
	})
	rsSrv := httptest.NewServer(rsMux)
	defer rsSrv.Close()

	ep, err := DiscoverEndpoints(context.Background(), rsSrv.Client(), rsSrv.URL)
	require.NoError(t, err)
	assert.Equal(t, "https://as.example/authorize", ep.AuthorizationEndpoint)
}

func TestGeneratePKCE_ProducesDistinctPairs(t *testing.T) {
	p1, err := generatePKCE()
	require.NoError(t, err)
	p2, err := generatePKCE()
	require.NoError(t, err)
	assert.NotEqual(t, p1.Verifier, p2.Verifier)
	assert.NotEmpty(t, p1.Challenge)
}

func TestBindCallbackServer_ProbesNextPortOnConflict(t *testing.T) {
	first, err := bindCallbackServer()
	require.NoError(t, err)
	defer first.listener.Close()

	second, err := bindCallbackServer()
	require.NoError(t, err)
	defer second.listener.Close()

	assert.NotEqual(t, first.port, second.port)
}

func TestOrigin_ExtractsSchemeAndHost(t *testing.T) {
	origin, err := Origin("https://mcp.example.com:8443/some/path?x=1")
	require.NoError(t, err)
	assert.Equal(t, "https://mcp.example.com:8443", origin)
}
