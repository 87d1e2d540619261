package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20
)

// Standard JSON-RPC codes plus the server-defined range used for transport
// failures. Ledger failure codes live in errors.go.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = -32001
	codeNotFound       = -32004
	codeAlreadyExists  = -32009
	codeTxRejected     = -32010
	codeRateLimited    = -32020
)

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// httpStatus maps an RPC error code onto the HTTP status it is sent with.
func httpStatus(code int) int {
	switch code {
	case codeServerError:
		return http.StatusInternalServerError
	case codeUnauthorized:
		return http.StatusUnauthorized
	case codeNotFound, codeMethodNotFound:
		return http.StatusNotFound
	case codeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadRequest
	}
}

// decodeRequest reads one JSON-RPC call from the body. The returned status
// is only meaningful alongside a non-nil error.
func decodeRequest(w http.ResponseWriter, r *http.Request) (*RPCRequest, int, *RPCError) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, &RPCError{
				Code:    codeInvalidRequest,
				Message: fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes),
			}
		}
		return nil, http.StatusBadRequest, &RPCError{Code: codeInvalidRequest, Message: "failed to read request body", Data: err.Error()}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, http.StatusBadRequest, &RPCError{Code: codeInvalidRequest, Message: "request body required"}
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, http.StatusBadRequest, &RPCError{Code: codeParseError, Message: "invalid JSON payload", Data: err.Error()}
	}
	switch {
	case req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion:
		return &req, http.StatusBadRequest, &RPCError{Code: codeInvalidRequest, Message: "unsupported jsonrpc version", Data: req.JSONRPC}
	case req.Method == "":
		return &req, http.StatusBadRequest, &RPCError{Code: codeInvalidRequest, Message: "method required"}
	}
	return &req, http.StatusOK, nil
}

func reply(w http.ResponseWriter, status int, resp RPCResponse) {
	resp.JSONRPC = jsonRPCVersion
	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func replyError(w http.ResponseWriter, status int, id interface{}, rpcErr *RPCError) {
	reply(w, status, RPCResponse{ID: id, Error: rpcErr})
}
