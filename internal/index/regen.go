package index

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
)

// RegenerationCheck is the inputs the Regeneration Detector compares
// against a loaded index's build metadata.
type RegenerationCheck struct {
	IndexPath   string
	CLIVersion  string
	CLIArgs     CLIArgs
	ScopeFilter []string // which of {"user","project","local"} to consider; nil means all
}

// RegenerationResult is the detector's verdict plus its reasons.
type RegenerationResult struct {
	ShouldRebuild bool
	Reasons       []string
}

// ShouldRegenerate runs the six ordered checks against the index at
// check.IndexPath and returns whether a rebuild is needed and why.
func ShouldRegenerate(check RegenerationCheck, fingerprints map[string]ConfigFingerprint) RegenerationResult {
	store := NewStore(check.IndexPath)

	if _, err := os.Stat(check.IndexPath); err != nil {
		return RegenerationResult{ShouldRebuild: true, Reasons: []string{"not found"}}
	}

	idx, err := store.Load()
	if err != nil {
		return RegenerationResult{ShouldRebuild: true, Reasons: []string{fmt.Sprintf("corrupted: %s", err)}}
	}

	if idx.IsLegacy() {
		return RegenerationResult{ShouldRebuild: true, Reasons: []string{"legacy format"}}
	}

	var reasons []string

	if idx.BuildMetadata.CLIVersion != check.CLIVersion {
		reasons = append(reasons, fmt.Sprintf("cli version changed: %s -> %s", idx.BuildMetadata.CLIVersion, check.CLIVersion))
	}

	reasons = append(reasons, diffCLIArgs(idx.BuildMetadata.CLIArgs, check.CLIArgs)...)
	reasons = append(reasons, diffFingerprints(idx.BuildMetadata.ConfigFingerprints, fingerprints, check.ScopeFilter)...)

	return RegenerationResult{ShouldRebuild: len(reasons) > 0, Reasons: reasons}
}

func diffCLIArgs(old, cur CLIArgs) []string {
	var reasons []string
	if old.Mode != cur.Mode {
		reasons = append(reasons, fmt.Sprintf("mode changed: %q -> %q", old.Mode, cur.Mode))
	}
	if old.Provider != cur.Provider {
		reasons = append(reasons, fmt.Sprintf("provider changed: %q -> %q", old.Provider, cur.Provider))
	}
	if old.Dtype != cur.Dtype {
		reasons = append(reasons, fmt.Sprintf("Model dtype changed: %q -> %q", old.Dtype, cur.Dtype))
	}
	if !sameMultiset(old.Exclude, cur.Exclude) {
		reasons = append(reasons, "exclude list changed")
	}
	return reasons
}

func sameMultiset(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa := append([]string(nil), a...)
	sb := append([]string(nil), b...)
	sort.Strings(sa)
	sort.Strings(sb)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

func diffFingerprints(old, cur map[string]ConfigFingerprint, scopeFilter []string) []string {
	scopes := scopeFilter
	if scopes == nil {
		scopes = []string{"user", "project", "local"}
	}

	var reasons []string
	for _, scope := range scopes {
		o := old[scope]
		c := cur[scope]

		switch {
		case !o.Exists && c.Exists:
			reasons = append(reasons, fmt.Sprintf("%s config added", scope))
		case o.Exists && !c.Exists:
			reasons = append(reasons, fmt.Sprintf("%s config removed", scope))
		case o.Exists && c.Exists && o.Hash != c.Hash:
			reasons = append(reasons, fmt.Sprintf("%s config content changed", scope))
		}
	}
	return reasons
}

// FingerprintFile computes the ConfigFingerprint for a config path: the
// file either does not exist or is hashed with SHA-256 over its exact
// bytes.
func FingerprintFile(path string) (ConfigFingerprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ConfigFingerprint{Exists: false}, nil
		}
		return ConfigFingerprint{}, fmt.Errorf("read %s: %w", path, err)
	}
	sum := sha256.Sum256(data)
	return ConfigFingerprint{Exists: true, Hash: hex.EncodeToString(sum[:])}, nil
}
