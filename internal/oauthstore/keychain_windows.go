//go:build windows

package oauthstore

import (
	"encoding/json"
	"fmt"

	"github.com/danieljoos/wincred"
)

// WindowsKeychainCache mirrors OAuth token writes into the Windows
// Credential Manager as a best-effort secondary cache. The filesystem
// Store remains authoritative: a failure here is never surfaced to the
// caller of Store.SaveSession.
type WindowsKeychainCache struct {
	prefix string
}

// NewWindowsKeychainCache returns a SecondaryCache backed by the Windows
// Credential Manager, namespacing every entry under prefix.
func NewWindowsKeychainCache(prefix string) *WindowsKeychainCache {
	return &WindowsKeychainCache{prefix: prefix}
}

func (k *WindowsKeychainCache) credentialName(url string) string {
	return fmt.Sprintf("%s:%s", k.prefix, digest(url))
}

// Store writes tokens for url into the credential manager.
func (k *WindowsKeychainCache) Store(url string, tokens TokenSet) error {
	blob, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("marshal tokens for keychain: %w", err)
	}
	cred := wincred.NewGenericCredential(k.credentialName(url))
	cred.CredentialBlob = blob
	cred.Persist = wincred.PersistLocalMachine
	return cred.Write()
}

// Clear removes url's cached credential, if any.
func (k *WindowsKeychainCache) Clear(url string) error {
	cred, err := wincred.GetGenericCredential(k.credentialName(url))
	if err != nil {
		return nil // nothing cached; not an error for a best-effort cache
	}
	return cred.Delete()
}
