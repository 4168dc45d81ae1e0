// Package mcpclient speaks the MCP JSON-RPC protocol to a single
// upstream server over stdio, Streamable HTTP, or SSE. Every client's
// public operations are single-shot: connect, perform exactly one of
// listTools/callTool, then close.
package mcpclient

import (
	"context"
	"time"

	"github.com/please-dev/please-gateway/internal/registry"
)

// DefaultConnectTimeout bounds how long a Connect call may take.
const DefaultConnectTimeout = 30 * time.Second

// TransportKind names the wire transport a Client speaks.
type TransportKind string

const (
	TransportStdio TransportKind = "stdio"
	TransportHTTP  TransportKind = "http"
	TransportSSE   TransportKind = "sse"
)

// ServerConfig is the resolved connection information for one upstream,
// after auth resolution.
type ServerConfig struct {
	Transport TransportKind

	// stdio
	Command string
	Args    []string
	Env     map[string]string

	// http | sse
	URL string

	// Injected as "Authorization: Bearer <AccessToken>" for http/sse.
	AccessToken string

	ConnectTimeout time.Duration
}

func (c ServerConfig) timeout() time.Duration {
	if c.ConnectTimeout > 0 {
		return c.ConnectTimeout
	}
	return DefaultConnectTimeout
}

// Client is the transport-agnostic contract every upstream connection
// implements.
type Client interface {
	Connect(ctx context.Context) error
	ListTools(ctx context.Context) ([]registry.ToolDefinition, error)
	CallTool(ctx context.Context, name string, arguments map[string]interface{}) (*registry.ToolResult, error)
	Close() error
}

// New selects and constructs the appropriate Client for cfg. If
// Transport is unset, it is inferred: presence of URL implies HTTP,
// otherwise stdio.
func New(cfg ServerConfig) Client {
	transport := cfg.Transport
	if transport == "" {
		if cfg.URL != "" {
			transport = TransportHTTP
		} else {
			transport = TransportStdio
		}
	}

	switch transport {
	case TransportSSE:
		return newSSEClient(cfg)
	case TransportHTTP:
		return newHTTPClient(cfg)
	default:
		return newStdioClient(cfg)
	}
}

// sanitizeEnv merges the caller's environment with an overlay, dropping
// any overlay entries with an empty value so the spawned process only
// ever sees well-formed KEY=VALUE pairs.
func sanitizeEnv(base []string, overlay map[string]string) []string {
	env := append([]string(nil), base...)
	for k, v := range overlay {
		if k == "" || v == "" {
			continue
		}
		env = append(env, k+"="+v)
	}
	return env
}
