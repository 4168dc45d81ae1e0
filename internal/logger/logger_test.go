package logger

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedact_StripsAccessAndRefreshTokensAndBearerHeader(t *testing.T) {
	msg := `token response: {"access_token":"abc123","refresh_token":"xyz789"} Authorization: Bearer secret-value`
	got := Redact(msg)

	assert.NotContains(t, got, "abc123")
	assert.NotContains(t, got, "xyz789")
	assert.NotContains(t, got, "secret-value")
	assert.Contains(t, got, "REDACTED")
}

func TestInit_WritesEntryToFileAndRedactsIt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(dir))
	defer Close()

	Info("Authorization: Bearer top-secret")

	// The background writer drains asynchronously; give it a moment.
	deadline := time.Now().Add(2 * time.Second)
	var data []byte
	for time.Now().Before(deadline) {
		b, err := os.ReadFile(GetLogFilePath())
		if err == nil && len(b) > 0 {
			data = b
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	require.NotEmpty(t, data)
	assert.NotContains(t, string(data), "top-secret")
	assert.Contains(t, string(data), "REDACTED")
}

func TestGetLogs_KeepsMostRecentEntries(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(dir))
	defer Close()

	Info("first")
	Warn("second")
	logs := GetLogs()

	require.GreaterOrEqual(t, len(logs), 2)
	last := logs[len(logs)-1]
	assert.Equal(t, "WARN", last.Level)
	assert.Equal(t, "second", last.Message)
}

func TestDebug_SuppressedWithoutDebugEnv(t *testing.T) {
	os.Unsetenv("MCP_GATEWAY_DEBUG")
	dir := t.TempDir()
	require.NoError(t, Init(dir))
	defer Close()

	before := len(GetLogs())
	Debug("should not appear")
	after := GetLogs()

	for _, e := range after[before:] {
		assert.False(t, strings.Contains(e.Message, "should not appear"))
	}
}
