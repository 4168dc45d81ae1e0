package commands

import (
	"testing"

	"github.com/please-dev/please-gateway/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitCSV(t *testing.T) {
	assert.Nil(t, splitCSV(""))
	assert.Equal(t, []string{"a", "b"}, splitCSV("a, b ,"))
}

func TestParseEnvCSV(t *testing.T) {
	assert.Nil(t, parseEnvCSV(""))
	assert.Equal(t, map[string]string{"A": "1", "B": "2"}, parseEnvCSV("A=1,B=2"))
}

func TestParseEnvCSV_IgnoresMalformedPairs(t *testing.T) {
	assert.Equal(t, map[string]string{"A": "1"}, parseEnvCSV("A=1,nope"))
}

func TestParseConfigScope(t *testing.T) {
	scope, err := parseConfigScope("local")
	require.NoError(t, err)
	assert.Equal(t, config.ScopeLocal, scope)

	_, err = parseConfigScope("bogus")
	assert.Error(t, err)
}

func TestCatalog_EmptyByDefault(t *testing.T) {
	entries, err := catalog().List()
	require.NoError(t, err)
	_ = entries // an absent ~/.please/registry is valid and empty, not an error
}
