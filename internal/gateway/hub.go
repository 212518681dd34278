package gateway

import (
	"context"
	"errors"
	"time"

	"realtime_chat/internal/logger"
	"realtime_chat/internal/metrics"
	"realtime_chat/internal/models"
	"realtime_chat/internal/protocol"
	"realtime_chat/internal/service"
)

// ErrHubStopped is returned when a connection tries to join after shutdown.
var ErrHubStopped = errors.New("gateway hub stopped")

type post struct {
	from *Client
	text string
}

// Hub serializes every change to the broadcast set: joins, leaves and posts
// are handled one at a time by Run. Because history is loaded inside the
// join event, a message is either part of a client's history batch or
// broadcast to it afterwards, never both and never neither.
type Hub struct {
	chat     service.Chat
	registry Registry
	log      *logger.Logger

	join    chan *Client
	leave   chan *Client
	posts   chan post
	stopped chan struct{}
}

func NewHub(chat service.Chat, registry Registry, log *logger.Logger) *Hub {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Hub{
		chat:     chat,
		registry: registry,
		log:      logger.OrNop(log),
		join:     make(chan *Client),
		leave:    make(chan *Client),
		posts:    make(chan post, 64),
		stopped:  make(chan struct{}),
	}
}

// Run processes hub events until ctx is canceled, then closes every
// registered connection's queue.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	for {
		select {
		case <-ctx.Done():
			for _, c := range h.registry.Clients() {
				h.drop(c)
			}
			return
		case c := <-h.join:
			h.handleJoin(ctx, c)
		case c := <-h.leave:
			h.drop(c)
		case p := <-h.posts:
			h.handlePost(ctx, p)
		}
	}
}

// Join registers c for broadcasts after queueing its history batch.
func (h *Hub) Join(c *Client) error {
	select {
	case h.join <- c:
		return nil
	case <-h.stopped:
		return ErrHubStopped
	}
}

// Leave unregisters c and closes its queue. Safe to call more than once.
func (h *Hub) Leave(c *Client) {
	select {
	case h.leave <- c:
	case <-h.stopped:
	}
}

// Post hands an incoming message to the hub.
func (h *Hub) Post(c *Client, text string) {
	select {
	case h.posts <- post{from: c, text: text}:
	case <-h.stopped:
	}
}

func (h *Hub) handleJoin(ctx context.Context, c *Client) {
	history, err := h.chat.History(ctx, time.Time{}, service.HistorySize)
	if err != nil {
		h.log.Errorw("ws_history_failed", "client", c.id, "err", err)
	} else if payload, err := protocol.Encode(protocol.EventPreviousMessages, toWire(history)); err != nil {
		h.log.Errorw("ws_history_encode_failed", "client", c.id, "err", err)
	} else {
		c.enqueue(payload)
	}

	h.registry.Add(c)
	c.registered = true
	metrics.ActiveConnections.Inc()
	h.log.Infow("ws_joined", "client", c.id, "user_id", c.identity.UserID, "guest", c.identity.IsGuest,
		"history", len(history), "handshake_ms", time.Since(c.connectedAt).Milliseconds())
}

func (h *Hub) handlePost(ctx context.Context, p post) {
	if !p.from.registered {
		return
	}
	msg, err := h.chat.Post(ctx, p.from.identity, p.text)
	if err != nil {
		h.dropMessage(p.from, err)
		return
	}

	payload, err := protocol.Encode(protocol.EventMessage, toWireMessage(msg))
	if err != nil {
		h.log.Errorw("ws_message_encode_failed", "message", msg.ID, "err", err)
		return
	}
	for _, slow := range h.registry.Broadcast(payload) {
		metrics.SlowConsumers.Inc()
		h.log.Warnw("ws_slow_consumer_dropped", "client", slow.id)
		h.drop(slow)
	}
	metrics.MessagesBroadcast.Inc()
}

// dropMessage logs why an incoming message was not broadcast. The sender
// gets no error event.
func (h *Hub) dropMessage(from *Client, err error) {
	var perr *service.PersistenceError
	switch {
	case errors.As(err, &perr):
		metrics.MessagesDropped.WithLabelValues("persistence").Inc()
		h.log.Errorw("ws_message_persist_failed", "client", from.id, "user_id", from.identity.UserID, "err", err)
	case errors.Is(err, service.ErrEmptyMessage):
		metrics.MessagesDropped.WithLabelValues("empty").Inc()
		h.log.Debugw("ws_message_empty", "client", from.id)
	default:
		metrics.MessagesDropped.WithLabelValues("unresolved_author").Inc()
		h.log.Warnw("ws_message_rejected", "client", from.id, "user_id", from.identity.UserID, "err", err)
	}
}

func (h *Hub) drop(c *Client) {
	if !h.registry.Remove(c) {
		return
	}
	c.registered = false
	close(c.send)
	metrics.ActiveConnections.Dec()
	h.log.Infow("ws_left", "client", c.id, "user_id", c.identity.UserID)
}

func toWireMessage(m models.Message) protocol.Message {
	return protocol.Message{
		ID:        m.ID,
		UserID:    m.UserID,
		Username:  m.Username,
		Text:      m.Text,
		Timestamp: m.Timestamp,
	}
}

func toWire(msgs []models.Message) []protocol.Message {
	out := make([]protocol.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toWireMessage(m))
	}
	return out
}
