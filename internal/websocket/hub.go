// Package websocket pushes live-reload notifications to open article pages.
//
// The hub is server-push only: clients never send application messages, and
// a change notification carries just the file name so the page re-fetches
// the sanitized article from the delivery endpoint.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/toolinger/toolinger/internal/logging"
	"github.com/toolinger/toolinger/internal/validation"
)

// MessageTypeContentChanged tells a page that a content file was modified.
const MessageTypeContentChanged = "content_changed"

const writeTimeout = 10 * time.Second

// Message is the JSON frame sent to pages.
type Message struct {
	Type      string    `json:"type"`
	Target    string    `json:"target,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	addr string
}

// Hub tracks live-reload connections. The clients set is owned by the run
// goroutine; everything else talks to it over channels.
type Hub struct {
	clients    map[*client]struct{}
	count      atomic.Int64
	broadcast  chan []byte
	register   chan *client
	unregister chan *client

	allowedOrigins []string
	logger         logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHub starts a hub that accepts same-host origins and allowedOrigins.
func NewHub(allowedOrigins []string, logger logging.Logger) *Hub {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		clients:        make(map[*client]struct{}),
		broadcast:      make(chan []byte, 64),
		register:       make(chan *client, 32),
		unregister:     make(chan *client, 32),
		allowedOrigins: allowedOrigins,
		logger:         logger.WithComponent("livereload"),
		ctx:            ctx,
		cancel:         cancel,
		done:           make(chan struct{}),
	}

	go h.run()

	return h
}

func (h *Hub) run() {
	defer close(h.done)

	for {
		select {
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Store(int64(len(h.clients)))
			h.logger.Debug(h.ctx, "Live reload client connected", "remote", c.addr, "clients", len(h.clients))

		case c := <-h.unregister:
			h.drop(c)

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.logger.Warn(h.ctx, nil, "Dropping slow live reload client", "remote", c.addr)
					h.drop(c)
				}
			}

		case <-h.ctx.Done():
			for c := range h.clients {
				close(c.send)
			}
			h.clients = make(map[*client]struct{})
			h.count.Store(0)
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.count.Store(int64(len(h.clients)))
}

// ServeHTTP upgrades the request and streams notifications until the peer
// goes away or the hub shuts down.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.ctx.Err() != nil {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	if origin := r.Header.Get("Origin"); origin != "" && !h.originAllowed(origin, r.Host) {
		logging.LogSecurityEvent(r.Context(), h.logger, "websocket_origin_rejected", map[string]interface{}{
			"origin": origin,
			"remote": r.RemoteAddr,
		})
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	// The server write timeout would otherwise carry over to the hijacked
	// connection. Recorders in tests do not support deadlines.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	// Origins are checked above; the library check would only see Host.
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  []string{"*"},
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		h.logger.Warn(r.Context(), err, "WebSocket upgrade failed", "remote", r.RemoteAddr)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 16), addr: r.RemoteAddr}

	select {
	case h.register <- c:
	case <-h.ctx.Done():
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}

	// Nothing is read from pages; CloseRead handles control frames and
	// cancels readCtx when the peer disconnects.
	readCtx := conn.CloseRead(h.ctx)
	h.writePump(readCtx, c)

	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
}

func (h *Hub) writePump(ctx context.Context, c *client) {
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.Close(websocket.StatusGoingAway, "")
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				h.logger.Debug(ctx, "Live reload write failed", "remote", c.addr, "error", err.Error())
				_ = c.conn.CloseNow()
				return
			}
		case <-ctx.Done():
			_ = c.conn.Close(websocket.StatusGoingAway, "")
			return
		}
	}
}

func (h *Hub) originAllowed(origin, host string) bool {
	if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, host) {
		return true
	}
	return validation.ValidateOrigin(origin, h.allowedOrigins) == nil
}

// Broadcast queues msg for every connected client. It drops the message
// when the hub is shut down or the queue is full.
func (h *Hub) Broadcast(msg Message) error {
	if err := h.ctx.Err(); err != nil {
		return err
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- data:
	case <-h.ctx.Done():
		return context.Canceled
	default:
		h.logger.Warn(h.ctx, nil, "Live reload queue full, dropping message", "type", msg.Type)
	}
	return nil
}

// NotifyContentChanged tells pages showing file to re-fetch it.
func (h *Hub) NotifyContentChanged(file string) error {
	return h.Broadcast(Message{Type: MessageTypeContentChanged, Target: file})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Shutdown closes every connection and stops the hub.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.cancel()
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
