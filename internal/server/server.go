package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/blend/internal/blend"
	"github.com/npezzotti/blend/internal/router"
	"github.com/npezzotti/blend/internal/stats"
	"github.com/npezzotti/blend/internal/types"
	"github.com/rs/zerolog"
)

// ChatServer owns the realtime connections and feeds their events to the
// room service.
type ChatServer struct {
	log            zerolog.Logger
	svc            *blend.Service
	router         *router.Router
	stats          stats.StatsProvider
	clients        map[*Client]struct{}
	clientsLock    sync.Mutex
	registerChan   chan *Client
	deRegisterChan chan *Client
	stop           chan struct{}
	done           chan struct{}
}

func NewChatServer(logger zerolog.Logger, svc *blend.Service, r *router.Router, su stats.StatsProvider) (*ChatServer, error) {
	if svc == nil || r == nil {
		return nil, fmt.Errorf("chat server requires a room service and a router")
	}
	if su == nil {
		su = stats.NopStats{}
	}
	su.RegisterMetric(stats.ActiveConnections)

	return &ChatServer{
		log:            logger.With().Str("component", "chat_server").Logger(),
		svc:            svc,
		router:         r,
		stats:          su,
		clients:        make(map[*Client]struct{}),
		registerChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}, nil
}

func (cs *ChatServer) Run() {
	defer close(cs.done)

	for {
		select {
		case c := <-cs.registerChan:
			cs.addClient(c)
			cs.router.Register(c.user.Id, c)
			cs.stats.Incr(stats.ActiveConnections)
			c.log.Info().Msg("client connected")
		case c := <-cs.deRegisterChan:
			if cs.removeClient(c) {
				cs.router.Disconnect(c)
				cs.stats.Decr(stats.ActiveConnections)
				c.log.Info().Msg("client disconnected")
			}
		case <-cs.stop:
			cs.log.Info().Msg("closing client connections")
			cs.clientsLock.Lock()
			for c := range cs.clients {
				c.stopClient()
			}
			cs.clientsLock.Unlock()
			return
		}
	}
}

// Connect starts serving an upgraded websocket connection for user.
func (cs *ChatServer) Connect(user types.User, conn *websocket.Conn) *Client {
	c := NewClient(user, conn, cs, cs.log)

	select {
	case cs.registerChan <- c:
	case <-cs.done:
		conn.Close()
		return c
	}

	go c.Write()
	go c.Read()
	return c
}

func (cs *ChatServer) deregister(c *Client) {
	select {
	case cs.deRegisterChan <- c:
	case <-cs.done:
		cs.router.Disconnect(c)
	}
}

func (cs *ChatServer) addClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	cs.clients[c] = struct{}{}
}

func (cs *ChatServer) removeClient(c *Client) bool {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()

	if _, ok := cs.clients[c]; !ok {
		return false
	}
	delete(cs.clients, c)
	return true
}

func (cs *ChatServer) ClientCount() int {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	return len(cs.clients)
}

// Shutdown stops every client and waits for the server loop to exit.
func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.log.Info().Msg("received shutdown signal")

	select {
	case <-cs.stop:
	default:
		close(cs.stop)
	}

	select {
	case <-cs.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("chat server shutdown: %w", ctx.Err())
	}
}
