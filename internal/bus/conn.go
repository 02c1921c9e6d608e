// Package bus connects Marvin as a shard to a websocket message hub.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

const (
	KindCommand = "command"
	KindReply   = "reply"
	KindError   = "error"

	// Broadcast addresses every shard on the hub.
	Broadcast = "ALL"
)

type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
	Intent  string `json:"intent,omitempty"`
	Audio   []byte `json:"audio,omitempty"`
}

var ErrMalformed = errors.New("malformed bus message")

// Conn is a websocket to the hub that can be redialled after the hub goes
// away. Writes are serialised; reads belong to a single goroutine.
type Conn struct {
	url    string
	reconn time.Duration

	mu   sync.Mutex
	conn *ws.Conn
}

func Dial(ctx context.Context, url string, reconn time.Duration) (*Conn, error) {
	log.Debug("Dialing bus", "url", url)

	conn, _, err := ws.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	if reconn <= 0 {
		reconn = time.Second
	}
	return &Conn{url: url, reconn: reconn, conn: conn}, nil
}

func (c *Conn) current() *ws.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// Read returns the next message. Errors wrapping ErrMalformed leave the
// connection usable; any other error means it must be redialled.
func (c *Conn) Read() (*Message, error) {
	_, raw, err := c.current().ReadMessage()
	if err != nil {
		return nil, err
	}
	log.Debug("Read bus", "bytes", len(raw))

	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &m, nil
}

func (c *Conn) Write(m *Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(ws.TextMessage, data)
}

// Reconnect redials until it succeeds or ctx is done.
func (c *Conn) Reconnect(ctx context.Context) error {
	for {
		conn, _, err := ws.DefaultDialer.DialContext(ctx, c.url, nil)
		if err == nil {
			c.mu.Lock()
			_ = c.conn.Close()
			c.conn = conn
			c.mu.Unlock()
			return nil
		}
		log.Debug("Bus redial failed", "err", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.reconn):
		}
	}
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteControl(ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.conn.Close()
}

// IsClosed reports whether the hub closed the connection.
func IsClosed(err error) bool {
	return ws.IsCloseError(err,
		ws.CloseNormalClosure,
		ws.CloseGoingAway,
		ws.CloseAbnormalClosure)
}
