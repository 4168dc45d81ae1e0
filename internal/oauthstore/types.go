// Package oauthstore persists OAuth 2.1 sessions and dynamic client
// registrations for MCP upstreams, one file pair per upstream URL under
// a well-known directory.
package oauthstore

import "time"

// TokenSet is the token half of an OAuth Session.
type TokenSet struct {
	AccessToken  string `json:"accessToken"`
	TokenType    string `json:"tokenType"`
	RefreshToken string `json:"refreshToken,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// Session is a stored OAuth session for a single upstream URL.
type Session struct {
	ServerURL string     `json:"serverURL"`
	Tokens    TokenSet   `json:"tokens"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"` // nil means "does not expire"
}

// ClientInfo is the cached result of dynamic client registration
// (RFC 7591) for a single upstream URL.
type ClientInfo struct {
	ServerURL    string `json:"serverURL"`
	ClientID     string `json:"clientID"`
	ClientSecret string `json:"clientSecret,omitempty"`
}

// refreshBuffer is how far ahead of expiry a session is proactively
// refreshed.
const refreshBuffer = 5 * time.Minute

// IsExpired reports whether s's token is currently unusable. A session
// with no expiry is never expired.
func (s *Session) IsExpired(now time.Time) bool {
	if s.ExpiresAt == nil {
		return false
	}
	return !now.Before(*s.ExpiresAt)
}

// NeedsRefresh reports whether s is within the five-minute refresh
// buffer of expiry. A session with no expiry never needs a refresh.
func (s *Session) NeedsRefresh(now time.Time) bool {
	if s.ExpiresAt == nil {
		return false
	}
	return !now.Before(s.ExpiresAt.Add(-refreshBuffer))
}

// IsUsable reports whether s carries either a usable access token or a
// refresh token; per the invariant, a session with neither is treated as
// absent.
func (s *Session) IsUsable(now time.Time) bool {
	if s.Tokens.RefreshToken != "" {
		return true
	}
	return s.Tokens.AccessToken != "" && !s.IsExpired(now)
}
