package gateway

import (
	"context"
	"net/http"
	"strings"
	"time"

	"realtime_chat/internal/logger"
	"realtime_chat/internal/metrics"
	"realtime_chat/internal/models"
	"realtime_chat/internal/protocol"
	"realtime_chat/internal/service"

	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 12 // 4 KB
)

// Authenticator resolves the identity presented by a connecting client.
type Authenticator interface {
	Authenticate(ctx context.Context, c service.Credentials) (models.Identity, error)
}

// Gateway upgrades HTTP requests to realtime connections and drives each
// connection through Connecting → Authenticating → Active → Closed.
type Gateway struct {
	auth     Authenticator
	hub      *Hub
	log      *logger.Logger
	upgrader websocket.Upgrader
}

// New builds a gateway. An empty or "*" allowedOrigins accepts any origin.
func New(auth Authenticator, hub *Hub, log *logger.Logger, allowedOrigins []string) *Gateway {
	return &Gateway{
		auth: auth,
		hub:  hub,
		log:  logger.OrNop(log),
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimSuffix(o, "/")] = struct{}{}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// non-browser clients don't send Origin
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// CredentialsFromRequest reads the handshake identity: a token in the query
// or Authorization header, or the guest query parameters.
func CredentialsFromRequest(r *http.Request) service.Credentials {
	q := r.URL.Query()
	creds := service.Credentials{
		Token:    q.Get(protocol.QueryToken),
		IsGuest:  q.Get(protocol.QueryIsGuest) == "true",
		UserID:   q.Get(protocol.QueryUserID),
		Username: q.Get(protocol.QueryUsername),
	}
	if creds.Token == "" {
		if parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2); len(parts) == 2 && parts[0] == "Bearer" {
			creds.Token = parts[1]
		}
	}
	return creds
}

// ServeHTTP handles one realtime connection for its whole lifetime.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	state := StateConnecting
	advance := func(in Input) {
		next, err := state.Next(in)
		if err != nil {
			g.log.Errorw("ws_bad_transition", "state", state, "input", in, "err", err)
			return
		}
		state = next
	}

	creds := CredentialsFromRequest(r)

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Errorw("ws_upgrade_failed", "err", err)
		return
	}
	advance(InputUpgraded)

	identity, err := g.auth.Authenticate(r.Context(), creds)
	if err != nil {
		metrics.Handshakes.WithLabelValues("rejected").Inc()
		g.log.Infow("ws_auth_rejected", "guest", creds.IsGuest, "remote", r.RemoteAddr, "err", err)
		g.reject(conn)
		advance(InputRejected)
		return
	}
	if identity.IsGuest {
		metrics.Handshakes.WithLabelValues("guest").Inc()
	} else {
		metrics.Handshakes.WithLabelValues("user").Inc()
	}

	client := newClient(conn, identity)
	if err := g.hub.Join(client); err != nil {
		_ = conn.Close()
		advance(InputDisconnected)
		return
	}
	advance(InputAuthenticated)
	g.log.Infow("ws_connected", "client", client.id, "user_id", identity.UserID, "guest", identity.IsGuest)

	go g.writePump(client)
	g.readPump(client)

	g.hub.Leave(client)
	advance(InputDisconnected)
	g.log.Infow("ws_disconnected", "client", client.id, "user_id", identity.UserID, "state", state)
}

// reject closes a connection whose handshake failed. Clients recognize the
// failure by the close reason.
func (g *Gateway) reject(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(protocol.CloseAuthenticationFailed, protocol.AuthErrorReason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = conn.Close()
}

// readPump decodes client events until the connection fails or closes.
func (g *Gateway) readPump(c *Client) {
	c.conn.SetReadLimit(maxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.log.Infow("ws_read_closed", "client", c.id, "err", err)
			}
			return
		}
		env, err := protocol.Decode(frame)
		if err != nil {
			g.log.Debugw("ws_bad_frame", "client", c.id, "err", err)
			continue
		}
		if env.Event != protocol.EventMessage {
			g.log.Debugw("ws_unknown_event", "client", c.id, "event", env.Event)
			continue
		}
		var out protocol.OutgoingMessage
		if err := env.DecodeData(&out); err != nil {
			g.log.Debugw("ws_bad_message", "client", c.id, "err", err)
			continue
		}
		g.hub.Post(c, out.Text)
	}
}

// writePump drains the client's queue and keeps the connection alive with
// pings. It exits when the hub closes the queue or a write fails.
func (g *Gateway) writePump(c *Client) {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				g.log.Infow("ws_write_failed", "client", c.id, "err", err)
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				g.log.Infow("ws_ping_failed", "client", c.id, "err", err)
				return
			}
		}
	}
}
