package utils

import (
	"bytes"
	"encoding/json"
)

const Version = "2.0"

type RPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      json.RawMessage `json:"id"`
}

type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  interface{}     `json:"result"`
	ID      json.RawMessage `json:"id"`
}

type RPCErrorResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Error   RPCError        `json:"error"`
	ID      json.RawMessage `json:"id"`
}

func NewRPCSuccessResponse(id json.RawMessage, result interface{}) RPCResponse {
	return RPCResponse{
		JSONRPC: Version,
		ID:      id,
		Result:  result,
	}
}

func NewRPCErrorResponse(id json.RawMessage, err RPCError) RPCErrorResponse {
	return RPCErrorResponse{
		JSONRPC: Version,
		ID:      id,
		Error:   err,
	}
}

// PeekID extracts the request id from a body that may not decode as a full
// request. The body is scanned as a token stream, so an id that precedes the
// syntax error is still recovered. It returns nil when no id can be found.
func PeekID(body []byte) json.RawMessage {
	dec := json.NewDecoder(bytes.NewReader(body))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil
		}
		if key, _ := tok.(string); key == "id" {
			return value
		}
	}
	return nil
}
