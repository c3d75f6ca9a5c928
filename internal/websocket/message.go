package websocket

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
)

// Message actions.
const (
	ActionStatsUpdated   = "stats.updated"
	ActionHistoryUpdated = "history.updated"
	ActionPong           = "pong"
	ActionError          = "error"

	ActionGetStats = "get_stats"
	ActionPing     = "ping"
)

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload,omitempty"`
}

// StatsPayload carries a user's conversion counter.
type StatsPayload struct {
	TotalConversions int `json:"total_conversions"`
}

// HistoryPayload carries the size of a session's history.
type HistoryPayload struct {
	Count int `json:"count"`
}

// ErrorPayload carries a human-readable error message.
type ErrorPayload struct {
	Message string `json:"message"`
}

// ParseMessage decodes an inbound client message.
func ParseMessage(data []byte) (Message, error) {
	var msg Message
	err := json.Unmarshal(data, &msg)
	return msg, err
}

// NewStatsMessage encodes a stats.updated message.
func NewStatsMessage(total int) []byte {
	return encode(Message{Action: ActionStatsUpdated, Payload: StatsPayload{TotalConversions: total}})
}

// NewHistoryMessage encodes a history.updated message.
func NewHistoryMessage(count int) []byte {
	return encode(Message{Action: ActionHistoryUpdated, Payload: HistoryPayload{Count: count}})
}

// NewErrorMessage encodes an error message.
func NewErrorMessage(message string) []byte {
	return encode(Message{Action: ActionError, Payload: ErrorPayload{Message: message}})
}

// NewPongMessage encodes a reply to ping.
func NewPongMessage() []byte {
	return encode(Message{Action: ActionPong, Payload: map[string]string{"time": time.Now().UTC().Format(time.RFC3339)}})
}

func encode(msg Message) []byte {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("action", msg.Action).Msg("Failed to encode websocket message")
		return nil
	}
	return data
}
