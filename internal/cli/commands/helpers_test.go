package commands

import (
	"testing"

	"github.com/please-dev/please-gateway/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIndexScope(t *testing.T) {
	scope, err := parseIndexScope("user")
	require.NoError(t, err)
	assert.Equal(t, config.ScopeUser, scope)

	_, err = parseIndexScope("local")
	assert.Error(t, err, "local is a config scope but not a valid index scope")

	_, err = parseIndexScope("bogus")
	assert.Error(t, err)
}

func TestIndexPathsForServe_ExplicitOverrideWins(t *testing.T) {
	r, err := config.NewResolver(t.TempDir(), t.TempDir())
	require.NoError(t, err)

	paths, err := indexPathsForServe(r, "project", "/custom/index.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"/custom/index.json"}, paths)
}

func TestIndexPathsForServe_AllMergesBothScopes(t *testing.T) {
	r, err := config.NewResolver(t.TempDir(), t.TempDir())
	require.NoError(t, err)

	paths, err := indexPathsForServe(r, "all", "")
	require.NoError(t, err)
	assert.Len(t, paths, 2)
}

func TestIndexPathsForServe_InvalidScope(t *testing.T) {
	r, err := config.NewResolver(t.TempDir(), t.TempDir())
	require.NoError(t, err)

	_, err = indexPathsForServe(r, "bogus", "")
	assert.Error(t, err)
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}
