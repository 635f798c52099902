package mcpgateway

import (
	"bytes"
	"encoding/json"

	"github.com/cockroachdb/errors"
)

const methodInitialize = "initialize"

var errEmptyEnvelope = errors.New("empty request body")

// rpcMessage holds the routing-relevant fields of one JSON-RPC message.
type rpcMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
}

// envelope is a decoded POST body: a single message or a batch.
type envelope struct {
	messages []rpcMessage
	batch    bool
}

func parseEnvelope(body []byte) (*envelope, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errEmptyEnvelope
	}
	switch trimmed[0] {
	case '{':
		var msg rpcMessage
		if err := json.Unmarshal(trimmed, &msg); err != nil {
			return nil, errors.Wrap(err, "invalid JSON-RPC message")
		}
		return &envelope{messages: []rpcMessage{msg}}, nil
	case '[':
		var msgs []rpcMessage
		if err := json.Unmarshal(trimmed, &msgs); err != nil {
			return nil, errors.Wrap(err, "invalid JSON-RPC batch")
		}
		if len(msgs) == 0 {
			return nil, errors.New("empty JSON-RPC batch")
		}
		return &envelope{messages: msgs, batch: true}, nil
	default:
		return nil, errors.New("request body must be a JSON-RPC object or batch")
	}
}

// isInitialize reports whether any message in the envelope is an initialize call.
func (e *envelope) isInitialize() bool {
	for _, msg := range e.messages {
		if msg.Method == methodInitialize {
			return true
		}
	}
	return false
}
