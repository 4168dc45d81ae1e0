package oauthstore

import (
	"crypto/md5" //nolint:gosec // used only as a non-cryptographic path digest, not for security
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNotFound is returned by the load operations when no file exists for
// the requested upstream URL.
var ErrNotFound = errors.New("oauthstore: not found")

// Store is the filesystem-backed token store rooted at baseDir (typically
// ~/.please/oauth). It is authoritative on every platform; platforms with
// a native secret store may additionally mirror writes into a secondary
// cache via WithSecondaryCache.
type Store struct {
	baseDir   string
	secondary SecondaryCache
}

// SecondaryCache is an optional, best-effort platform secret store that
// mirrors token writes. A miss or error from the secondary cache never
// fails an operation: the filesystem store in baseDir is authoritative.
type SecondaryCache interface {
	Store(url string, tokens TokenSet) error
	Clear(url string) error
}

// New constructs a Store rooted at baseDir. It does not touch the disk;
// the directories are created with owner-only permissions on first write.
func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// WithSecondaryCache attaches an optional platform secret store. Returns
// the store for chaining.
func (s *Store) WithSecondaryCache(cache SecondaryCache) *Store {
	s.secondary = cache
	return s
}

// digest returns the first 12 hex characters of MD5(url) (uniqueness is
// sufficient here, not cryptographic strength).
func digest(url string) string {
	sum := md5.Sum([]byte(url)) //nolint:gosec
	return hex.EncodeToString(sum[:])[:12]
}

func (s *Store) tokenPath(url string) string {
	return filepath.Join(s.baseDir, "tokens", digest(url)+".json")
}

func (s *Store) clientPath(url string) string {
	return filepath.Join(s.baseDir, "clients", digest(url)+".json")
}

func writeJSONFile(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create oauth store directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal oauth data: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write oauth file: %w", err)
	}
	return nil
}

func readJSONFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("read oauth file: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse oauth file: %w", err)
	}
	return nil
}

// LoadSession loads the session for url. If includeExpired is false and
// the stored session is expired, ErrNotFound is returned.
func (s *Store) LoadSession(url string, includeExpired bool) (*Session, error) {
	var sess Session
	if err := readJSONFile(s.tokenPath(url), &sess); err != nil {
		return nil, err
	}
	if !includeExpired && sess.IsExpired(time.Now()) {
		return nil, ErrNotFound
	}
	return &sess, nil
}

// SaveSession persists sess and mirrors it to the secondary cache, if any.
func (s *Store) SaveSession(sess *Session) error {
	if err := writeJSONFile(s.tokenPath(sess.ServerURL), sess); err != nil {
		return err
	}
	if s.secondary != nil {
		_ = s.secondary.Store(sess.ServerURL, sess.Tokens)
	}
	return nil
}

// UpdateTokens updates only the token fields of the stored session for
// url, leaving everything else the loadSession call would have returned
// unchanged, and persists the result.
func (s *Store) UpdateTokens(url string, tokens TokenSet, expiresAt *time.Time) error {
	sess, err := s.LoadSession(url, true)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		sess = &Session{ServerURL: url}
	}
	sess.Tokens = tokens
	sess.ExpiresAt = expiresAt
	return s.SaveSession(sess)
}

// ClearSession deletes the stored session for url, if any.
func (s *Store) ClearSession(url string) error {
	if err := os.Remove(s.tokenPath(url)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove oauth session: %w", err)
	}
	if s.secondary != nil {
		_ = s.secondary.Clear(url)
	}
	return nil
}

// LoadClientInfo loads the cached dynamic-registration result for url.
func (s *Store) LoadClientInfo(url string) (*ClientInfo, error) {
	var info ClientInfo
	if err := readJSONFile(s.clientPath(url), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// SaveClientInfo persists a dynamic-registration result for url.
func (s *Store) SaveClientInfo(info *ClientInfo) error {
	return writeJSONFile(s.clientPath(info.ServerURL), info)
}

// HasValidSession reports whether url has a non-expired session.
func (s *Store) HasValidSession(url string) bool {
	sess, err := s.LoadSession(url, false)
	return err == nil && sess.IsUsable(time.Now())
}

// HasSession reports whether url has a session at all, including one
// that has expired but carries a refresh token.
func (s *Store) HasSession(url string) bool {
	_, err := s.LoadSession(url, true)
	return err == nil
}

// NeedsRefresh reports whether url's session is within the five-minute
// refresh buffer of expiry.
func (s *Store) NeedsRefresh(url string) bool {
	sess, err := s.LoadSession(url, true)
	if err != nil {
		return false
	}
	return sess.NeedsRefresh(time.Now())
}
