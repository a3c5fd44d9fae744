package phoenix

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Vsn is the serializer version announced in the socket URL.
const Vsn = "2.0.0"

// Protocol topics and events.
const (
	TopicPhoenix   = "phoenix"
	EventHeartbeat = "heartbeat"
	EventJoin      = "phx_join"
	EventLeave     = "phx_leave"
	EventReply     = "phx_reply"
	EventError     = "phx_error"
	EventClose     = "phx_close"
)

// ErrMalformedFrame indicates a frame that is not a V2 message array.
var ErrMalformedFrame = errors.New("phoenix: malformed frame")

// Message is one protocol frame. Empty refs are encoded as null.
type Message struct {
	JoinRef string
	Ref     string
	Topic   string
	Event   string
	Payload json.RawMessage
}

// Encode renders m as the V2 array [join_ref, ref, topic, event, payload].
func Encode(m Message) ([]byte, error) {
	payload := m.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	return json.Marshal([]any{nullable(m.JoinRef), nullable(m.Ref), m.Topic, m.Event, payload})
}

// Decode parses a V2 array frame.
func Decode(data []byte) (Message, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if len(parts) != 5 {
		return Message{}, fmt.Errorf("%w: %d elements", ErrMalformedFrame, len(parts))
	}
	var (
		m            Message
		joinRef, ref *string
	)
	if err := json.Unmarshal(parts[0], &joinRef); err != nil {
		return Message{}, fmt.Errorf("%w: join_ref: %v", ErrMalformedFrame, err)
	}
	if err := json.Unmarshal(parts[1], &ref); err != nil {
		return Message{}, fmt.Errorf("%w: ref: %v", ErrMalformedFrame, err)
	}
	if err := json.Unmarshal(parts[2], &m.Topic); err != nil {
		return Message{}, fmt.Errorf("%w: topic: %v", ErrMalformedFrame, err)
	}
	if err := json.Unmarshal(parts[3], &m.Event); err != nil {
		return Message{}, fmt.Errorf("%w: event: %v", ErrMalformedFrame, err)
	}
	if joinRef != nil {
		m.JoinRef = *joinRef
	}
	if ref != nil {
		m.Ref = *ref
	}
	m.Payload = parts[4]
	return m, nil
}

type reply struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

func encodePayload(p map[string]any) json.RawMessage {
	if p == nil {
		return json.RawMessage("{}")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}

func decodePayload(raw json.RawMessage) any {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
