package oauthflow

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/please-dev/please-gateway/internal/oauthstore"
	"golang.org/x/oauth2"
)

// Manager implements the OAuth 2.1 authorization-code grant, with
// PKCE-S256 and dynamic client registration, for a single upstream
// server URL.
type Manager struct {
	serverURL string
	scopes    []string
	store     *oauthstore.Store
	client    *http.Client

	openBrowser func(url string) error
}

// NewManager builds a Manager for a single upstream. openBrowser is
// called with the authorization URL; pass nil to only print it (the
// gateway's non-interactive default).
func NewManager(serverURL string, scopes []string, store *oauthstore.Store, openBrowser func(string) error) *Manager {
	if openBrowser == nil {
		openBrowser = func(url string) error {
			fmt.Printf("Please open the following URL to authorize: %s\n", url)
			return nil
		}
	}
	return &Manager{
		serverURL:   serverURL,
		scopes:      scopes,
		store:       store,
		client:      &http.Client{Timeout: 10 * time.Second},
		openBrowser: openBrowser,
	}
}

// GetAccessToken implements the refresh-or-login decision from spec
// §4.C's getAccessToken(): load the session (including expired ones);
// if absent, run the full authorization-code flow; if present and
// within the refresh buffer, refresh; on refresh failure, fall back to
// the full flow.
func (m *Manager) GetAccessToken(ctx context.Context) (string, error) {
	sess, err := m.store.LoadSession(m.serverURL, true)
	if err != nil {
		return m.login(ctx)
	}

	if sess.NeedsRefresh(time.Now()) && sess.Tokens.RefreshToken != "" {
		token, refreshErr := m.refresh(ctx, sess.Tokens.RefreshToken)
		if refreshErr == nil {
			return token, nil
		}
		return m.login(ctx)
	}

	if !sess.IsExpired(time.Now()) {
		return sess.Tokens.AccessToken, nil
	}

	return m.login(ctx)
}

func (m *Manager) refresh(ctx context.Context, refreshToken string) (string, error) {
	origin, err := Origin(m.serverURL)
	if err != nil {
		return "", err
	}
	endpoints, err := DiscoverEndpoints(ctx, m.client, origin)
	if err != nil {
		return "", err
	}
	clientInfo, err := m.store.LoadClientInfo(m.serverURL)
	if err != nil {
		return "", fmt.Errorf("refresh requires a previously registered client: %w", err)
	}

	cfg := &oauth2.Config{
		ClientID:     clientInfo.ClientID,
		ClientSecret: clientInfo.ClientSecret,
		Endpoint:     oauth2.Endpoint{AuthURL: endpoints.AuthorizationEndpoint, TokenURL: endpoints.TokenEndpoint},
		Scopes:       m.scopes,
	}

	token, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return "", fmt.Errorf("refresh token exchange failed: %w", err)
	}

	if err := m.persistToken(token); err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

// login runs the full authorization-code grant: discover endpoints,
// register a client if needed, open the browser, await the callback,
// exchange the code, and persist the resulting session.
func (m *Manager) login(ctx context.Context) (string, error) {
	origin, err := Origin(m.serverURL)
	if err != nil {
		return "", err
	}

	endpoints, err := DiscoverEndpoints(ctx, m.client, origin)
	if err != nil {
		return "", fmt.Errorf("endpoint discovery failed: %w", err)
	}

	cb, err := bindCallbackServer()
	if err != nil {
		return "", err
	}
	defer cb.close()

	clientInfo, err := m.store.LoadClientInfo(m.serverURL)
	if err != nil {
		if endpoints.RegistrationEndpoint == "" {
			return "", fmt.Errorf("no cached client and no registration endpoint advertised for %s", m.serverURL)
		}
		clientInfo, err = registerClient(ctx, m.client, endpoints.RegistrationEndpoint, m.serverURL, cb.redirectURI())
		if err != nil {
			return "", fmt.Errorf("dynamic client registration failed: %w", err)
		}
		clientInfo.ServerURL = m.serverURL
		if err := m.store.SaveClientInfo(clientInfo); err != nil {
			return "", fmt.Errorf("cache client registration: %w", err)
		}
	}

	state, err := generateState()
	if err != nil {
		return "", err
	}

	var pkce pkcePair
	usePKCE := endpoints.SupportsS256()
	if usePKCE {
		pkce, err = generatePKCE()
		if err != nil {
			return "", err
		}
	}

	cfg := &oauth2.Config{
		ClientID:    clientInfo.ClientID,
		Endpoint:    oauth2.Endpoint{AuthURL: endpoints.AuthorizationEndpoint, TokenURL: endpoints.TokenEndpoint},
		RedirectURL: cb.redirectURI(),
		Scopes:      m.scopes,
	}

	authParams := []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("prompt", "consent")}
	if usePKCE {
		authParams = append(authParams,
			oauth2.SetAuthURLParam("code_challenge", pkce.Challenge),
			oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		)
	}
	authURL := cfg.AuthCodeURL(state, authParams...)

	if err := m.openBrowser(authURL); err != nil {
		fmt.Printf("Please open the following URL to authorize: %s\n", authURL)
	}

	code, err := cb.awaitCallback(ctx, state)
	if err != nil {
		return "", fmt.Errorf("authorization callback failed: %w", err)
	}

	exchangeParams := []oauth2.AuthCodeOption{}
	if usePKCE {
		exchangeParams = append(exchangeParams, oauth2.SetAuthURLParam("code_verifier", pkce.Verifier))
	}
	token, err := cfg.Exchange(ctx, code, exchangeParams...)
	if err != nil {
		return "", fmt.Errorf("token exchange failed: %w", err)
	}

	if err := m.persistToken(token); err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

func (m *Manager) persistToken(token *oauth2.Token) error {
	var expiresAt *time.Time
	if !token.Expiry.IsZero() {
		e := token.Expiry
		expiresAt = &e
	}

	return m.store.SaveSession(&oauthstore.Session{
		ServerURL: m.serverURL,
		Tokens: oauthstore.TokenSet{
			AccessToken:  token.AccessToken,
			TokenType:    token.TokenType,
			RefreshToken: token.RefreshToken,
		},
		ExpiresAt: expiresAt,
	})
}
