package mcpgateway

import (
	"encoding/json"
	"net/http"
)

// JSON-RPC error codes used for routing rejections.
const (
	codeParseError      = -32700
	codeBadRequest      = -32000
	codeSessionNotFound = -32001
	codeInternalError   = -32603
)

type errorBody struct {
	Error string `json:"error"`
}

type rpcErrorBody struct {
	JSONRPC string   `json:"jsonrpc"`
	Error   rpcError `json:"error"`
	ID      any      `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRPCError(w http.ResponseWriter, status, code int, message string) {
	writeJSON(w, status, rpcErrorBody{
		JSONRPC: "2.0",
		Error:   rpcError{Code: code, Message: message},
		ID:      nil,
	})
}
