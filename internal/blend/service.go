// Package blend implements blend rooms: shared playlists, chat with an
// assistant bridge and the invite workflow. Every mutation of a room runs on
// that room's worker, and events are broadcast only after the change is
// stored.
package blend

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/npezzotti/blend/internal/config"
	"github.com/npezzotti/blend/internal/database"
	"github.com/npezzotti/blend/internal/router"
	"github.com/npezzotti/blend/internal/stats"
	"github.com/npezzotti/blend/internal/types"
	"github.com/rs/zerolog"
)

// Broadcaster delivers events to room groups and registered users.
type Broadcaster interface {
	JoinGroup(c router.Conn, roomId string) bool
	LeaveGroup(c router.Conn, roomId string)
	RemoveUserFromGroup(roomId, userId string)
	Broadcast(roomId string, ev *types.Event, skip router.Conn) int
	CloseGroup(roomId string, ev *types.Event)
	SendToUser(userId string, ev *types.Event) bool
}

type PosterLookup interface {
	PosterURL(ctx context.Context, title string) (string, error)
}

type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Caller identifies who issued an operation. Conn is set for realtime
// events; those operations return as soon as they are queued and report
// failures to the log only.
type Caller struct {
	User types.User
	Conn router.Conn
}

func (c Caller) realtime() bool {
	return c.Conn != nil
}

type Options struct {
	IdleTimeout      time.Duration
	QueueSize        int
	OpTimeout        time.Duration
	AssistantTrigger string
	AssistantSender  string
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		IdleTimeout:      cfg.Rooms.IdleTimeout,
		QueueSize:        cfg.Rooms.QueueSize,
		OpTimeout:        cfg.Rooms.OpTimeout,
		AssistantTrigger: cfg.Assistant.Trigger,
		AssistantSender:  cfg.Assistant.Sender,
	}
}

func (o Options) withDefaults() Options {
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 30 * time.Second
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.OpTimeout <= 0 {
		o.OpTimeout = 10 * time.Second
	}
	if o.AssistantTrigger == "" {
		o.AssistantTrigger = "@gemini"
	}
	if o.AssistantSender == "" {
		o.AssistantSender = "Gemini"
	}
	o.AssistantTrigger = strings.ToLower(o.AssistantTrigger)
	return o
}

type Service struct {
	log       zerolog.Logger
	db        database.BlendRepository
	router    Broadcaster
	catalog   PosterLookup
	assistant TextGenerator
	stats     stats.StatsProvider
	opts      Options

	workersLock sync.Mutex
	workers     map[string]*roomWorker
	stopping    bool
	// bg tracks assistant calls and catalog lookups running off the workers
	bg sync.WaitGroup
}

// NewService wires the room service. catalog and assistant may be nil.
func NewService(
	logger zerolog.Logger,
	db database.BlendRepository,
	r Broadcaster,
	catalog PosterLookup,
	assistant TextGenerator,
	su stats.StatsProvider,
	opts Options,
) *Service {
	if su == nil {
		su = stats.NopStats{}
	}
	su.RegisterMetric(stats.LoadedRooms)

	return &Service{
		log:       logger.With().Str("component", "blend").Logger(),
		db:        db,
		router:    r,
		catalog:   catalog,
		assistant: assistant,
		stats:     su,
		opts:      opts.withDefaults(),
		workers:   make(map[string]*roomWorker),
	}
}

// goBackground runs fn outside the room workers unless the service is
// shutting down.
func (s *Service) goBackground(fn func()) bool {
	s.workersLock.Lock()
	defer s.workersLock.Unlock()

	if s.stopping {
		return false
	}

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		fn()
	}()
	return true
}

// Shutdown stops accepting work, drains every room queue and waits for
// background calls to finish.
func (s *Service) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down room workers")

	s.workersLock.Lock()
	workers := make([]*roomWorker, 0, len(s.workers))
	for _, w := range s.workers {
		workers = append(workers, w)
		if !s.stopping {
			close(w.exit)
		}
	}
	s.stopping = true
	s.workersLock.Unlock()

	for _, w := range workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			return fmt.Errorf("waiting for room %q: %w", w.roomId, ctx.Err())
		}
	}

	done := make(chan struct{})
	go func() {
		s.bg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for background calls: %w", ctx.Err())
	}
}

// LoadedRooms returns the number of rooms with a running worker.
func (s *Service) LoadedRooms() int {
	s.workersLock.Lock()
	defer s.workersLock.Unlock()
	return len(s.workers)
}

// loadMember returns the room if userId participates in it.
func (s *Service) loadMember(ctx context.Context, roomId, userId string) (types.Room, error) {
	room, err := s.db.GetRoom(ctx, roomId)
	if err != nil {
		return types.Room{}, err
	}

	if !room.HasParticipant(userId) {
		return types.Room{}, fmt.Errorf("user %q in room %q: %w", userId, roomId, types.ErrForbidden)
	}

	return room, nil
}
