package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"realtime_chat/internal/protocol"

	"github.com/gorilla/websocket"
)

// ErrAuthentication means the server refused the handshake; the session
// should be dropped and the user sent back to login.
var ErrAuthentication = errors.New("authentication error")

// EventKind says what changed in a ChatView.
type EventKind int

const (
	EventHistory EventKind = iota
	EventMessage
	EventClosed
)

// Event is delivered on ChatView.Events after the message list changes or
// the connection ends. Messages is a snapshot of the whole list.
type Event struct {
	Kind     EventKind
	Messages []protocol.Message
	Err      error
}

// ChatView holds the conversation as seen by one connection, oldest
// message first.
type ChatView struct {
	wsURL  string
	dialer *websocket.Dialer

	mu       sync.Mutex
	conn     *websocket.Conn
	messages []protocol.Message
	events   chan Event
}

// NewChatView accepts the server's http(s) or ws(s) base URL.
func NewChatView(serverURL string) (*ChatView, error) {
	u, err := url.Parse(strings.TrimSuffix(serverURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	u.Path += "/ws"
	return &ChatView{
		wsURL:  u.String(),
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		events: make(chan Event, 16),
	}, nil
}

func (h Handshake) query() url.Values {
	q := url.Values{}
	if h.Guest {
		q.Set(protocol.QueryIsGuest, "true")
		q.Set(protocol.QueryUserID, h.UserID)
		q.Set(protocol.QueryUsername, h.Username)
		return q
	}
	q.Set(protocol.QueryToken, h.Token)
	return q
}

// Connect dials the server presenting h and starts reading. A rejected
// handshake arrives later as an EventClosed carrying ErrAuthentication.
func (v *ChatView) Connect(ctx context.Context, h Handshake) error {
	conn, _, err := v.dialer.DialContext(ctx, v.wsURL+"?"+h.query().Encode(), nil)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	v.mu.Lock()
	v.conn = conn
	v.messages = nil
	v.mu.Unlock()

	go v.readLoop(conn)
	return nil
}

// Events delivers list changes and the final close. The channel is never
// closed; EventClosed is the last event for a connection.
func (v *ChatView) Events() <-chan Event { return v.events }

// Messages returns a copy of the current list.
func (v *ChatView) Messages() []protocol.Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]protocol.Message(nil), v.messages...)
}

// Send emits a message. The list only changes when the server broadcasts
// it back. Blank text is not sent.
func (v *ChatView) Send(text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	frame, err := protocol.Encode(protocol.EventMessage, protocol.OutgoingMessage{Text: text})
	if err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.conn == nil {
		return errors.New("send: not connected")
	}
	return v.conn.WriteMessage(websocket.TextMessage, frame)
}

// Close ends the connection.
func (v *ChatView) Close() error {
	v.mu.Lock()
	conn := v.conn
	v.conn = nil
	v.mu.Unlock()
	if conn == nil {
		return nil
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return conn.Close()
}

func (v *ChatView) readLoop(conn *websocket.Conn) {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			v.events <- Event{Kind: EventClosed, Messages: v.Messages(), Err: closeReason(err)}
			return
		}
		env, err := protocol.Decode(frame)
		if err != nil {
			continue
		}
		switch env.Event {
		case protocol.EventPreviousMessages:
			var batch []protocol.Message
			if env.DecodeData(&batch) != nil {
				continue
			}
			v.mu.Lock()
			v.messages = batch
			v.mu.Unlock()
			v.events <- Event{Kind: EventHistory, Messages: v.Messages()}
		case protocol.EventMessage:
			var m protocol.Message
			if env.DecodeData(&m) != nil {
				continue
			}
			v.mu.Lock()
			v.messages = append(v.messages, m)
			v.mu.Unlock()
			v.events <- Event{Kind: EventMessage, Messages: v.Messages()}
		}
	}
}

func closeReason(err error) error {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		if ce.Code == protocol.CloseAuthenticationFailed || ce.Text == protocol.AuthErrorReason {
			return ErrAuthentication
		}
		if ce.Code == websocket.CloseNormalClosure {
			return nil
		}
	}
	return err
}
