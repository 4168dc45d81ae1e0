package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCallArgs_ExplicitJSON(t *testing.T) {
	args, err := parseCallArgs(`{"path": "/tmp", "count": 3}`)
	require.NoError(t, err)
	assert.Equal(t, "/tmp", args["path"])
	assert.Equal(t, float64(3), args["count"])
}

func TestParseCallArgs_InvalidJSON(t *testing.T) {
	_, err := parseCallArgs(`{not json`)
	assert.Error(t, err)
}
