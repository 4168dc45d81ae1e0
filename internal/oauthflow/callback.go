package oauthflow

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

const (
	defaultCallbackBasePort = 3334
	callbackPortAttempts    = 10
	callbackTimeout         = 5 * time.Minute
)

// callbackResult is what the local callback server captures from the
// browser redirect.
type callbackResult struct {
	Code  string
	State string
	Err   error
}

// callbackServer is a local HTTP server bound to exactly one probed port,
// awaiting a single GET /callback.
type callbackServer struct {
	listener net.Listener
	port     int
	srv      *http.Server
}

// bindCallbackServer probes ports starting at defaultCallbackBasePort,
// trying up to callbackPortAttempts consecutive ports until one binds.
// Any bind failure (EADDRINUSE or otherwise) advances to the next port.
func bindCallbackServer() (*callbackServer, error) {
	var lastErr error
	for i := 0; i < callbackPortAttempts; i++ {
		port := defaultCallbackBasePort + i
		l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err == nil {
			return &callbackServer{listener: l, port: port}, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("oauthflow: could not bind a callback port in range %d-%d: %w", defaultCallbackBasePort, defaultCallbackBasePort+callbackPortAttempts-1, lastErr)
}

func (c *callbackServer) redirectURI() string {
	return fmt.Sprintf("http://127.0.0.1:%d/callback", c.port)
}

// awaitCallback serves exactly one GET /callback, validates state, and
// returns the authorization code. It gives up after callbackTimeout.
func (c *callbackServer) awaitCallback(ctx context.Context, expectedState string) (string, error) {
	resultCh := make(chan callbackResult, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		if errParam := query.Get("error"); errParam != "" {
			resultCh <- callbackResult{Err: fmt.Errorf("authorization server returned error: %s", errParam)}
			http.Error(w, "Authorization failed.", http.StatusBadRequest)
			return
		}
		if query.Get("state") != expectedState {
			resultCh <- callbackResult{Err: fmt.Errorf("state mismatch: possible CSRF")}
			http.Error(w, "Invalid state.", http.StatusBadRequest)
			return
		}
		code := query.Get("code")
		if code == "" {
			resultCh <- callbackResult{Err: fmt.Errorf("no authorization code in callback")}
			http.Error(w, "Missing code.", http.StatusBadRequest)
			return
		}

		fmt.Fprintln(w, "Authentication successful! You can close this window.")
		resultCh <- callbackResult{Code: code, State: query.Get("state")}
	})

	c.srv = &http.Server{Handler: mux}
	go c.srv.Serve(c.listener)
	defer c.srv.Shutdown(context.Background())

	select {
	case result := <-resultCh:
		if result.Err != nil {
			return "", result.Err
		}
		return result.Code, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(callbackTimeout):
		return "", fmt.Errorf("oauthflow: timed out waiting for authorization callback")
	}
}

func (c *callbackServer) close() {
	if c.srv != nil {
		c.srv.Close()
	}
}
