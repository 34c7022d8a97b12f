package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"dappconnect/internal/domain"
)

const closeGrace = time.Second

// Client is a websocket connection to a bridge.
type Client struct {
	dialer *websocket.Dialer
	logger *slog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	handler func(domain.SocketMessage)
	closed  bool

	writeMu sync.Mutex
}

// NewClient returns an unopened client. A nil logger uses slog.Default.
func NewClient(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{dialer: websocket.DefaultDialer, logger: logger}
}

// OnMessage registers the delivery callback for inbound publications.
func (c *Client) OnMessage(fn func(domain.SocketMessage)) {
	c.mu.Lock()
	c.handler = fn
	c.mu.Unlock()
}

// Open dials url and starts reading.
func (c *Client) Open(ctx context.Context, url string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("%w: client closed", domain.ErrTransport)
	}
	if c.conn != nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: already open", domain.ErrTransport)
	}
	c.mu.Unlock()

	conn, _, err := c.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", domain.ErrTransport, url, err)
	}

	c.mu.Lock()
	if c.closed || c.conn != nil {
		c.mu.Unlock()
		_ = conn.Close()
		return fmt.Errorf("%w: client closed while dialing", domain.ErrTransport)
	}
	c.conn = conn
	c.mu.Unlock()

	c.logger.Debug("bridge connected", "url", url)
	go c.readLoop(conn)
	return nil
}

// Subscribe asks the bridge to deliver publications for topic.
func (c *Client) Subscribe(ctx context.Context, topic string) error {
	return c.Send(ctx, domain.SocketMessage{
		Topic:   topic,
		Type:    domain.MessageSub,
		Payload: "",
		Silent:  true,
	})
}

// Send writes msg to the bridge.
func (c *Client) Send(ctx context.Context, msg domain.SocketMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	conn, closed := c.conn, c.closed
	c.mu.Unlock()
	if closed {
		return fmt.Errorf("%w: client closed", domain.ErrTransport)
	}
	if conn == nil {
		return fmt.Errorf("%w: not open", domain.ErrTransport)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(dl)
		defer func() { _ = conn.SetWriteDeadline(time.Time{}) }()
	}
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("%w: write %s to %s: %v", domain.ErrTransport, msg.Type, msg.Topic, err)
	}
	return nil
}

// Close sends a close frame and closes the connection. Later calls are
// no-ops.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeGrace))
	c.writeMu.Unlock()
	return conn.Close()
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var msg domain.SocketMessage
		if err := conn.ReadJSON(&msg); err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed && !errors.Is(err, websocket.ErrCloseSent) {
				c.logger.Warn("bridge connection lost", "error", err)
			}
			return
		}
		if msg.Type != domain.MessagePub {
			c.logger.Debug("ignoring bridge message", "type", msg.Type, "topic", msg.Topic)
			continue
		}

		c.mu.Lock()
		h := c.handler
		c.mu.Unlock()
		if h != nil {
			h(msg)
		}
	}
}

var _ domain.Transport = (*Client)(nil)
