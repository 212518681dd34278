package gateway

import (
	"time"

	"realtime_chat/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// sendQueueSize bounds how far a client may fall behind the broadcast stream
// before the hub drops it.
const sendQueueSize = 256

// Client is one realtime connection. send is owned by the hub: only the hub
// goroutine enqueues on it or closes it.
type Client struct {
	id          string
	identity    models.Identity
	conn        *websocket.Conn
	send        chan []byte
	connectedAt time.Time

	// registered is read and written by the hub goroutine only.
	registered bool
}

func newClient(conn *websocket.Conn, identity models.Identity) *Client {
	return &Client{
		id:          uuid.NewString(),
		identity:    identity,
		conn:        conn,
		send:        make(chan []byte, sendQueueSize),
		connectedAt: time.Now().UTC(),
	}
}

// enqueue queues payload without blocking and reports whether it fit.
func (c *Client) enqueue(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}
