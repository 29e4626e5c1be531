package socket

import (
	"encoding/json"
	"fmt"

	"github.com/sqrrr/gamehub/internal/model"
)

// Envelope is one client-to-server message
type Envelope struct {
	Event ActionKind      `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Message is one server-to-client message as it appears on the wire
type Message struct {
	Event     model.EventType `json:"event"`
	Data      json.RawMessage `json:"data,omitempty"`
	LobbyCode model.LobbyCode `json:"lobbyCode,omitempty"`
	Timestamp int64           `json:"ts"`
}

type outbound struct {
	Event     model.EventType `json:"event"`
	Data      any             `json:"data,omitempty"`
	LobbyCode model.LobbyCode `json:"lobbyCode,omitempty"`
	Timestamp int64           `json:"ts"`
}

// Encode renders an event as a wire message
func Encode(event model.Event) ([]byte, error) {
	b, err := json.Marshal(outbound{
		Event:     event.Type,
		Data:      event.Payload,
		LobbyCode: event.LobbyCode,
		Timestamp: event.Timestamp.UnixMilli(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event.Type, err)
	}
	return b, nil
}

// decode unmarshals an action's data. Missing data decodes as the zero value.
func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return model.ErrInvalidAction
	}
	return nil
}
