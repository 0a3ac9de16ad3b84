package live

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"envmonitor/backend/services/monitoring-service/internal/metrics"
)

// Connection is one viewer socket. It owns a read pump and a write pump;
// outgoing frames go through a bounded queue and are dropped when it is full.
type Connection struct {
	id     string
	ws     *websocket.Conn
	send   chan []byte
	done   chan struct{}
	hub    *Hub
	logger *zap.Logger
	opts   Options

	closeOnce sync.Once
}

func newConnection(ws *websocket.Conn, hub *Hub, opts Options, logger *zap.Logger) *Connection {
	id := uuid.NewString()
	return &Connection{
		id:     id,
		ws:     ws,
		send:   make(chan []byte, opts.SendBuffer),
		done:   make(chan struct{}),
		hub:    hub,
		logger: logger.With(zap.String("connection_id", id)),
		opts:   opts,
	}
}

// ID returns connection identifier.
func (c *Connection) ID() string {
	return c.id
}

// Run launches the write pump and blocks in the read pump until the socket
// closes.
func (c *Connection) Run() {
	go c.writePump()
	c.readPump()
}

// Send enqueues a frame without blocking. It reports false when the frame was
// dropped.
func (c *Connection) Send(event string, frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		metrics.LiveMessagesSent.WithLabelValues(event).Inc()
		return true
	default:
		metrics.LiveMessagesDropped.WithLabelValues(event).Inc()
		c.logger.Warn("dropping live message, buffer full", zap.String("event", event))
		return false
	}
}

// Close asks the write pump to send a close frame and release the socket.
// Safe to call more than once.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Connection) readPump() {
	defer func() {
		c.hub.Remove(c)
		c.Close()
	}()

	pongWait := 2 * c.opts.PingInterval
	c.ws.SetReadLimit(c.opts.ReadLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info("live connection read closed", zap.Error(err))
			}
			return
		}

		cmd, ok := parseCommand(raw)
		if !ok {
			c.logger.Debug("ignoring unknown client message", zap.ByteString("message", raw))
			continue
		}
		if cmd.subscribe {
			c.hub.Subscribe(c, cmd.topic)
		} else {
			c.hub.Unsubscribe(c, cmd.topic)
		}
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.opts.WriteTimeout))
			return
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Connection) write(messageType int, data []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	return c.ws.WriteMessage(messageType, data)
}
