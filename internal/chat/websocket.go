package chat

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const wsMaxMessageLen = 4000

// wsFrame is the JSON frame exchanged with websocket clients.
type wsFrame struct {
	UserID string `json:"user_id,omitempty"`
	Text   string `json:"text"`
}

// WebSocketChannel is a development/local chat channel. Each client sends
// frames carrying its user id and message text; replies are written back on
// the same connection.
type WebSocketChannel struct {
	handler func(InboundMessage)
	conns   map[string]*websocket.Conn
	mu      sync.RWMutex
}

// NewWebSocketChannel creates a websocket channel adapter.
func NewWebSocketChannel() *WebSocketChannel {
	return &WebSocketChannel{
		conns: make(map[string]*websocket.Conn),
	}
}

func (c *WebSocketChannel) Start(_ context.Context, handler func(InboundMessage)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
	return nil
}

func (c *WebSocketChannel) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, conn := range c.conns {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(c.conns, id)
	}
	return nil
}

func (c *WebSocketChannel) SendMessage(ctx context.Context, userID string, msg OutboundMessage) error {
	c.mu.RLock()
	conn, ok := c.conns[userID]
	c.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no websocket connection for user %s", userID)
	}

	for _, part := range SplitMessage(msg.Text, wsMaxMessageLen) {
		if err := wsjson.Write(ctx, conn, wsFrame{Text: part}); err != nil {
			return fmt.Errorf("writing websocket message: %w", err)
		}
	}
	return nil
}

func (c *WebSocketChannel) SendTyping(_ context.Context, _ string) error {
	return nil
}

// Handler accepts websocket upgrade requests and reads inbound frames until
// the client disconnects.
func (c *WebSocketChannel) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			slog.Warn("websocket accept failed", "error", err)
			return
		}

		ctx := r.Context()
		var userID string

		defer func() {
			if userID != "" {
				c.mu.Lock()
				delete(c.conns, userID)
				c.mu.Unlock()
			}
			_ = conn.Close(websocket.StatusNormalClosure, "")
		}()

		for {
			var in wsFrame
			if err := wsjson.Read(ctx, conn, &in); err != nil {
				return
			}
			if in.UserID == "" || in.Text == "" {
				continue
			}

			if userID == "" {
				userID = in.UserID
				c.mu.Lock()
				c.conns[userID] = conn
				c.mu.Unlock()
				slog.Info("websocket client connected", "user_id", userID)
			}

			c.mu.RLock()
			handler := c.handler
			c.mu.RUnlock()
			if handler != nil {
				handler(InboundMessage{
					Channel: "websocket",
					UserID:  in.UserID,
					Text:    in.Text,
				})
			}
		}
	})
}
