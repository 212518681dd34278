// Package protocol defines the realtime wire format shared by the gateway
// and the chat client: JSON envelopes carried in websocket text frames.
package protocol

import (
	"encoding/json"
	"errors"
	"time"
)

// Event names.
const (
	// EventPreviousMessages carries the history batch, sent once per connection.
	EventPreviousMessages = "previousMessages"
	// EventMessage is a new message, client→server as OutgoingMessage and
	// server→client as Message.
	EventMessage = "message"
)

// Handshake rejection. Clients recognize a failed handshake by the close
// code or by the "Authentication error" reason.
const (
	CloseAuthenticationFailed = 4401
	AuthErrorReason           = "Authentication error"
)

// Handshake query parameters.
const (
	QueryToken    = "token"
	QueryIsGuest  = "isGuest"
	QueryUserID   = "userId"
	QueryUsername = "username"
)

type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Message is a fully resolved chat message as seen by clients.
type Message struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// OutgoingMessage is what a client emits. Older clients also send their
// userId and username; the server ignores both.
type OutgoingMessage struct {
	Text     string `json:"text"`
	UserID   string `json:"userId,omitempty"`
	Username string `json:"username,omitempty"`
}

// Encode marshals data into an envelope for event.
func Encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// Decode splits a frame into its event name and payload.
func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(frame, &env)
	return env, err
}

// DecodeData unmarshals the envelope payload into dst.
func (e Envelope) DecodeData(dst any) error {
	if len(e.Data) == 0 {
		return errors.New("envelope has no data")
	}
	return json.Unmarshal(e.Data, dst)
}
