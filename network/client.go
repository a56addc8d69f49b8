package network

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"siege_server/logic"
)

var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one attacker connection. The read goroutine owns the engine;
// the write goroutine owns the socket writes.
type Client struct {
	Session *Session
	Conn    *websocket.Conn
	Send    chan []byte

	writeTimeout time.Duration
	logger       *zap.Logger

	quit     chan struct{}
	stopOnce sync.Once
	mu       sync.Mutex
	reason   string
}

func newClient(s *Session, conn *websocket.Conn, cfg *logic.GameConfig, logger *zap.Logger) *Client {
	return &Client{
		Session:      s,
		Conn:         conn,
		Send:         make(chan []byte, 256),
		writeTimeout: time.Duration(cfg.Server.WriteTimeoutMs) * time.Millisecond,
		logger:       logger,
		quit:         make(chan struct{}),
		reason:       "Connection closed",
	}
}

// stop asks both pumps to finish. The first reason wins.
func (c *Client) stop(reason string) {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		c.reason = reason
		c.mu.Unlock()
		close(c.quit)
	})
}

func (c *Client) closeReason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// SendEvent queues an event for the writer. It reports false once the
// session is shutting down.
func (c *Client) SendEvent(ev logic.Event) bool {
	b, err := json.Marshal(ev)
	if err != nil {
		c.logger.Error("encode event", zap.Error(err))
		return false
	}
	select {
	case c.Send <- b:
		return true
	case <-c.quit:
		return false
	}
}

// readPump decodes one action per frame and steps the engine. It returns
// once the session is stopping; the writer closes the socket.
func (c *Client) readPump(maxMessage int64) {
	c.Conn.SetReadLimit(maxMessage)

	engine := c.Session.Engine
	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("read failed", zap.Error(err))
			}
			c.stop("Connection closed")
			return
		}

		var action logic.Action
		if err := json.Unmarshal(message, &action); err != nil {
			c.logger.Warn("malformed frame skipped", zap.Error(err))
			continue
		}

		res, err := engine.Step(action)
		switch {
		case errors.Is(err, logic.ErrUnknownAction):
			c.logger.Warn("unknown action skipped", zap.String("action", string(action.ActionType)))
			continue
		case errors.Is(err, logic.ErrSessionTerminated):
			c.stop("Game over")
			return
		case err != nil:
			c.stop("Internal error")
			return
		}

		if !c.SendEvent(res.Event()) {
			return
		}
		if res.GameOver {
			c.stop(res.Message)
			return
		}
	}
}

// writePump drains Send until the session stops, flushes what is left and
// closes the socket, which unblocks the reader.
func (c *Client) writePump() {
	defer c.Conn.Close()
	for {
		select {
		case message := <-c.Send:
			if err := c.write(websocket.TextMessage, message); err != nil {
				c.logger.Warn("write failed", zap.Error(err))
				c.stop("Send failed")
				return
			}
		case <-c.quit:
			for {
				select {
				case message := <-c.Send:
					if err := c.write(websocket.TextMessage, message); err != nil {
						return
					}
				default:
					c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}

func (c *Client) write(kind int, data []byte) error {
	c.Conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.Conn.WriteMessage(kind, data)
}
