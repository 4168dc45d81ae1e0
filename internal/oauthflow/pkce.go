package oauthflow

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

// pkcePair is a PKCE code verifier and its S256 challenge.
type pkcePair struct {
	Verifier  string
	Challenge string
}

// generatePKCE creates a code verifier and its S256 challenge: 32 random
// bytes, base64url-encoded.
func generatePKCE() (pkcePair, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return pkcePair{}, err
	}
	verifier := base64.RawURLEncoding.EncodeToString(b)

	h := sha256.New()
	h.Write([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(h.Sum(nil))

	return pkcePair{Verifier: verifier, Challenge: challenge}, nil
}

// generateState creates a cryptographically random CSRF state value.
func generateState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
