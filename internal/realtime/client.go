package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"gocab/internal/config"
	"gocab/pkg/logger"

	"github.com/gorilla/websocket"
)

var errClientClosed = errors.New("realtime: client closed")

// Client carries a session over a gorilla websocket connection. All writes
// go through a buffered send channel drained by a single writer goroutine,
// since the underlying connection allows one concurrent writer only. A full
// buffer drops the connection rather than blocking a hub publish.
type Client struct {
	conn *websocket.Conn
	cfg  *config.WebSocketConfig
	log  *logger.Logger

	send      chan []byte
	closeOnce sync.Once
	closed    chan struct{}
}

func NewClient(conn *websocket.Conn, cfg *config.WebSocketConfig, log *logger.Logger) *Client {
	return &Client{
		conn:   conn,
		cfg:    cfg,
		log:    log,
		send:   make(chan []byte, cfg.SendBufferSize),
		closed: make(chan struct{}),
	}
}

// Send queues an event for delivery. It never blocks: on a full buffer the
// connection is considered too slow and gets closed.
func (c *Client) Send(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	select {
	case <-c.closed:
		return errClientClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	case <-c.closed:
		return errClientClosed
	default:
		c.log.Warn("Send buffer full, dropping connection")
		c.Close()
		return errClientClosed
	}
}

func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.Close()
	})
	return nil
}

// Serve runs the read and write pumps until the connection dies, then runs
// the gateway's disconnect path. It blocks for the connection's lifetime.
func (c *Client) Serve(ctx context.Context, gateway *Gateway, sess *Session) {
	gateway.Register(sess)

	go c.writePump()
	c.readPump(ctx, gateway, sess)

	gateway.Disconnect(sess)
}

func (c *Client) readPump(ctx context.Context, gateway *Gateway, sess *Session) {
	defer c.Close()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.log.WithError(err).WithField("user_id", sess.UserID).Warn("WebSocket read error")
			}
			return
		}

		var event Event
		if err := json.Unmarshal(raw, &event); err != nil {
			c.Send(ErrorEvent(EventError, "BAD_EVENT", "invalid event envelope"))
			continue
		}

		gateway.HandleEvent(ctx, sess, event)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.closed:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
