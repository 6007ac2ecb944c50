package bridge

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/qbridge/limits"
)

const (
	wsReadBuffer   = 1024
	wsWriteBuffer  = 1024
	wsWriteTimeout = 10 * time.Second
)

// WebSocketChannel carries one message per text frame.
type WebSocketChannel struct {
	conn *websocket.Conn
	wmu  sync.Mutex

	frames chan frame
	done   chan struct{}
	once   sync.Once
}

// NewWebSocketChannel wraps an established connection.
func NewWebSocketChannel(conn *websocket.Conn) *WebSocketChannel {
	conn.SetReadLimit(int64(limits.MaxInboundEnvelope))
	c := &WebSocketChannel{
		conn:   conn,
		frames: make(chan frame),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *WebSocketChannel) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		select {
		case c.frames <- frame{data: data, err: err}:
		case <-c.done:
			return
		}
		if err != nil {
			return
		}
	}
}

// Receive returns the next message.
func (c *WebSocketChannel) Receive(ctx context.Context) ([]byte, error) {
	select {
	case f := <-c.frames:
		return f.data, f.err
	case <-c.done:
		return nil, ErrChannelClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Send writes msg as a text frame.
func (c *WebSocketChannel) Send(ctx context.Context, msg []byte) error {
	select {
	case <-c.done:
		return ErrChannelClosed
	default:
	}
	deadline := time.Now().Add(wsWriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.conn.SetWriteDeadline(deadline)
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// Close closes the connection.
func (c *WebSocketChannel) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

// WebSocketHandler upgrades connections from allowed origins and passes each
// to serve, which runs until the connection ends.
func WebSocketHandler(allowedOrigins []string, serve func(ctx context.Context, ch Channel)) http.Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  wsReadBuffer,
		WriteBufferSize: wsWriteBuffer,
		CheckOrigin:     originValidator(allowedOrigins),
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "WebSocketHandler",
				"remote":   r.RemoteAddr,
				"error":    err.Error(),
			}).Debug("WebSocket upgrade failed")
			return
		}
		ch := NewWebSocketChannel(conn)
		defer ch.Close()
		serve(r.Context(), ch)
	})
}

// originValidator accepts requests without an Origin header (non-browser
// clients), any origin when the list holds "*", and otherwise only listed
// origins. An empty list allows localhost pages only.
func originValidator(allowed []string) func(*http.Request) bool {
	origins := make(map[string]struct{})
	allowAll := false
	for _, o := range allowed {
		o = strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
		switch o {
		case "":
		case "*":
			allowAll = true
		default:
			origins[o] = struct{}{}
		}
	}
	if len(origins) == 0 && !allowAll {
		origins["http://localhost"] = struct{}{}
		origins["http://127.0.0.1"] = struct{}{}
	}

	return func(r *http.Request) bool {
		if _, ok := r.Header["Origin"]; !ok {
			return true
		}
		origin := strings.ToLower(r.Header.Get("Origin"))
		if allowAll {
			return true
		}
		if _, ok := origins[origin]; ok {
			return true
		}
		logrus.WithFields(logrus.Fields{
			"function": "originValidator",
			"origin":   origin,
		}).Warn("Rejected WebSocket connection")
		return false
	}
}
