package testutil

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// FeedClient is a WebSocket client for the event feed.
type FeedClient struct {
	conn *websocket.Conn
}

// DialFeed connects to ws://addr/events.
func DialFeed(addr string) (*FeedClient, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/events"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial feed: %w", err)
	}
	return &FeedClient{conn: conn}, nil
}

// Next reads one message as a generic JSON object.
func (c *FeedClient) Next(timeout time.Duration) (map[string]interface{}, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	var msg map[string]interface{}
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// NextOfType skips messages until one with the given type arrives.
func (c *FeedClient) NextOfType(typ string, timeout time.Duration) (map[string]interface{}, error) {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("no %q message within %s", typ, timeout)
		}
		msg, err := c.Next(remaining)
		if err != nil {
			return nil, err
		}
		if msg["type"] == typ {
			return msg, nil
		}
	}
}

// Close closes the connection.
func (c *FeedClient) Close() error {
	return c.conn.Close()
}
