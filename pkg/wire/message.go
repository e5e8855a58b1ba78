package wire

import (
	"encoding/json"
	"fmt"
)

// MessageType is the tag of an inbound push message. The set is closed:
// anything the server sends outside of it is ignored by the client.
type MessageType string

const (
	// MessageTypeSwapUpdate signals that one of the user's swap requests
	// changed status (accepted, rejected, cancelled, completed).
	MessageTypeSwapUpdate MessageType = "swap_update"

	// MessageTypeNewRequest signals that another user sent a swap request.
	MessageTypeNewRequest MessageType = "new_request"

	// MessageTypeRatingReceived signals that a completed swap was rated.
	MessageTypeRatingReceived MessageType = "rating_received"

	// MessageTypePing and MessageTypePong are transport keep-alives and
	// carry no user-visible meaning.
	MessageTypePing MessageType = "ping"
	MessageTypePong MessageType = "pong"
)

// Message represents a tagged payload received over the push channel.
type Message struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// SwapUpdatePayload is the data attached to a swap_update message.
type SwapUpdatePayload struct {
	SwapID int    `json:"swap_id"`
	Status string `json:"status"`
}

// NewRequestPayload is the data attached to a new_request message.
type NewRequestPayload struct {
	SwapID        int    `json:"swap_id"`
	RequesterName string `json:"requester_name"`
}

// RatingPayload is the data attached to a rating_received message.
type RatingPayload struct {
	SwapID int `json:"swap_id"`
	Stars  int `json:"stars"`
}

// Parse decodes a raw event body into a Message.
func Parse(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse push message: %w", err)
	}
	return &msg, nil
}

// DecodeData unmarshals the message payload into dst. Messages without a
// payload decode into the zero value.
func (m *Message) DecodeData(dst interface{}) error {
	if len(m.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(m.Data, dst); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", m.Type, err)
	}
	return nil
}

// NewMessage builds a Message with the given payload, marshaling it to
// JSON. Used by the test harness and by servers pushing notifications.
func NewMessage(t MessageType, payload interface{}) (*Message, error) {
	msg := &Message{Type: t}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", t, err)
		}
		msg.Data = data
	}
	return msg, nil
}
