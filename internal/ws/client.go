package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// eventEnvelope is the wire format for outbound events.
type eventEnvelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Client is a single websocket connection bound to an authenticated user.
type Client struct {
	ID       string
	UserID   int64
	UserName string

	conn *websocket.Conn
	mu   sync.Mutex // serializes writes; gorilla conns allow one writer at a time
}

func NewClient(id string, userID int64, userName string, conn *websocket.Conn) *Client {
	return &Client{
		ID:       id,
		UserID:   userID,
		UserName: userName,
		conn:     conn,
	}
}

// Send writes one event to the connection.
func (c *Client) Send(event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(eventEnvelope{Type: event, Data: payload})
}

// SendError reports a handler failure back to this connection only.
func (c *Client) SendError(msg string) {
	_ = c.Send("error", map[string]string{"message": msg})
}
