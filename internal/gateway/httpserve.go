package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/please-dev/please-gateway/internal/registry"
)

// HTTPHandler exposes the same JSON-RPC method set as ServeStdio over
// Streamable HTTP, one request per POST body, with CORS enabled for
// browser-based clients.
type HTTPHandler struct {
	server *Server
	mux    *http.ServeMux
}

// NewHTTPHandler builds an http.Handler around server.
func NewHTTPHandler(server *Server) *HTTPHandler {
	h := &HTTPHandler{server: server, mux: http.NewServeMux()}
	h.mux.HandleFunc("POST /message", h.handleMessage)
	return h
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	h.mux.ServeHTTP(w, r)
}

func (h *HTTPHandler) handleMessage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req registry.JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = json.NewEncoder(w).Encode(registry.NewErrorResponse(nil, registry.ParseError, "parse error"))
		return
	}

	resp := h.server.HandleRequest(r.Context(), req)
	_ = json.NewEncoder(w).Encode(resp)
}
