package dap

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// WebSocketTransport implements Transport over a WebSocket connection.
// Each DAP message is carried as one text frame; the WebSocket framing
// replaces the Content-Length headers.
type WebSocketTransport struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// NewWebSocketTransport creates a transport from an upgraded WebSocket
// connection.
func NewWebSocketTransport(conn *websocket.Conn) *WebSocketTransport {
	return &WebSocketTransport{conn: conn}
}

// Send sends a message as a single text frame.
func (t *WebSocketTransport) Send(msg *Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.conn.WriteMessage(websocket.TextMessage, msg.Content); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Receive receives the next text frame as a message.
func (t *WebSocketTransport) Receive() (*Message, error) {
	_, data, err := t.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	return &Message{
		ContentLength: len(data),
		Content:       data,
	}, nil
}

// Close closes the WebSocket connection.
func (t *WebSocketTransport) Close() error {
	return t.conn.Close()
}
