package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/npezzotti/blend/internal/types"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	sendQueueSize  = 256
)

// Client is one realtime connection. It implements router.Conn.
type Client struct {
	id         string
	conn       *websocket.Conn
	chatServer *ChatServer
	log        zerolog.Logger
	user       types.User
	send       chan *types.Event
	stop       chan struct{}
	stopOnce   sync.Once
}

func NewClient(user types.User, conn *websocket.Conn, cs *ChatServer, logger zerolog.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:         id,
		conn:       conn,
		chatServer: cs,
		log:        logger.With().Str("conn_id", id).Str("user_id", user.Id).Logger(),
		user:       user,
		send:       make(chan *types.Event, sendQueueSize),
		stop:       make(chan struct{}),
	}
}

func (c *Client) Id() string     { return c.id }
func (c *Client) UserId() string { return c.user.Id }

// Send queues ev for the write pump without blocking.
func (c *Client) Send(ev *types.Event) bool {
	return c.queueMessage(ev)
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Debug().Msg("write exiting")
	}()

	for {
		select {
		case ev := <-c.send:
			bytes, err := serializeMessage(ev)
			if err != nil {
				c.log.Error().Err(err).Str("event", ev.Name).Msg("failed to serialize message")
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
		c.log.Debug().Msg("read exiting")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) })

	ctx := context.Background()
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Warn().Err(err).Msg("ws: read")
			}
			return
		}

		msg, err := parseMessage(raw)
		if err != nil {
			c.log.Warn().Err(err).Msg("dropping malformed message")
			continue
		}

		if err := c.chatServer.dispatch(ctx, c, c.user, msg); err != nil {
			c.logDropped(msg, err)
		}
	}
}

func (c *Client) logDropped(msg *ClientMessage, err error) {
	ev := c.log.Warn()
	if errors.Is(err, types.ErrNotFound) || errors.Is(err, types.ErrValidation) {
		ev = c.log.Info()
	}
	ev.Err(err).Str("event", msg.Event).Msg("dropping event")
}

func (c *Client) queueMessage(ev *types.Event) bool {
	select {
	case c.send <- ev:
	default:
		c.log.Warn().Str("event", ev.Name).Msg("failed to send message to client, channel is full")
		return false
	}

	return true
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Warn().Err(err).Msg("write message")
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Client) Close() {
	c.stopClient()
}

func (c *Client) Closed() bool {
	select {
	case <-c.stop:
		return true
	default:
		return false
	}
}

// cleanup marks the connection closed, then removes it from its groups and
// the presence registry. Room membership is kept; leaving a room takes an
// explicit leave.
func (c *Client) cleanup() {
	c.stopClient()
	c.chatServer.deregister(c)
}
