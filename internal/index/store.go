package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Store persists, loads, and version-validates a single index document
// at a scope-derived path on disk.
type Store struct {
	path string
}

// NewStore creates a Store rooted at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the file path this store reads from and writes to.
func (s *Store) Path() string { return s.path }

// Exists reports whether the index can be loaded. Any load failure
// (missing file, corrupt JSON, unsupported major version) counts as
// "does not exist" for the purposes of the rebuild gate.
func (s *Store) Exists() bool {
	_, err := s.Load()
	return err == nil
}

// Load reads and parses the persisted index, enforcing the major-version
// gate: a mismatch in major version is a hard load error.
func (s *Store) Load() (*PersistedIndex, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}

	var idx PersistedIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parse index: %w", err)
	}

	if idx.Version != "" {
		major, _, _, err := parseVersion(idx.Version)
		if err != nil {
			return nil, fmt.Errorf("parse index version %q: %w", idx.Version, err)
		}
		curMajor, _, _, _ := parseVersion(CurrentVersion)
		if major != curMajor {
			return nil, fmt.Errorf("index major version %d incompatible with current major version %d", major, curMajor)
		}
	}

	return &idx, nil
}

// GetMetadata returns the header fields of the persisted index without
// requiring the caller to hold onto the full tools array.
func (s *Store) GetMetadata() (*PersistedIndex, error) {
	idx, err := s.Load()
	if err != nil {
		return nil, err
	}
	header := *idx
	header.Tools = nil
	return &header, nil
}

// Save writes idx to disk atomically: it writes to a temp file in the
// same directory, then renames over the destination, so a reader never
// observes a half-written index.
func (s *Store) Save(idx *PersistedIndex) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".index-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp index file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp index file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp index file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename index into place: %w", err)
	}
	return nil
}

// CreateEmpty writes a zero-tool index so a freshly configured
// deployment can serve an empty result rather than crash.
func (s *Store) CreateEmpty() error {
	now := time.Now()
	idx := &PersistedIndex{
		Version:   CurrentVersion,
		CreatedAt: now,
		UpdatedAt: now,
		BM25Stats: BM25Stats{DocumentFrequencies: map[string]int{}},
		Tools:     []IndexedTool{},
	}
	return s.Save(idx)
}

func parseVersion(v string) (major, minor, patch int, err error) {
	parts := strings.SplitN(v, ".", 3)
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("expected <major>.<minor>.<patch>, got %q", v)
	}
	major, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, err
	}
	minor, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, 0, err
	}
	patch, err = strconv.Atoi(strings.SplitN(parts[2], "-", 2)[0])
	if err != nil {
		return 0, 0, 0, err
	}
	return major, minor, patch, nil
}
