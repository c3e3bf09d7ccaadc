package wsfeed

import (
	"encoding/json"
	"strings"
)

const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"

	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusWarning = "warning"
	StatusError   = "error"
)

// Message represents the message object sent and expected by the websocket server.
// Requests carry an Action and a Hash. Responses are either data (Hash and Data),
// control messages (Status, Message and an optional Hash) or heartbeats (Tick).
type Message struct {
	Action  string          `json:"action,omitempty"`
	Hash    string          `json:"hash,omitempty"`
	Status  string          `json:"status,omitempty"`
	Message string          `json:"message,omitempty"`
	Tick    int64           `json:"tick,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// NewSubscribe creates a subscribe request for the given stream hash
func NewSubscribe(hash string) Message {
	return Message{Action: ActionSubscribe, Hash: hash}
}

// NewUnsubscribe creates an unsubscribe request for the given stream hash
func NewUnsubscribe(hash string) Message {
	return Message{Action: ActionUnsubscribe, Hash: hash}
}

func (m Message) String() string {
	var parts []string
	for _, kv := range [][2]string{
		{"action", m.Action},
		{"status", m.Status},
		{"hash", m.Hash},
		{"message", m.Message},
	} {
		if kv[1] != "" {
			parts = append(parts, kv[0]+"="+kv[1])
		}
	}
	return "{" + strings.Join(parts, " ") + "}"
}
