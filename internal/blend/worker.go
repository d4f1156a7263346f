package blend

import (
	"context"
	"fmt"
	"time"

	"github.com/npezzotti/blend/internal/stats"
	"github.com/npezzotti/blend/internal/types"
	"github.com/rs/zerolog"
)

var errShuttingDown = fmt.Errorf("%w: shutting down", types.ErrBusy)

type opFunc func(ctx context.Context) (any, error)

type opResult struct {
	value any
	err   error
}

type roomOp struct {
	ctx  context.Context
	name string
	fn   opFunc
	// result is nil for operations submitted without waiting.
	result chan opResult
}

// roomWorker runs every mutation of one room in submission order. It is
// started on first use and unloaded after the room has been idle.
type roomWorker struct {
	roomId string
	svc    *Service
	log    zerolog.Logger
	ops    chan *roomOp
	// killTimer unloads the worker once no operations arrive for the idle timeout
	killTimer *time.Timer
	// exit is closed to stop the worker after draining queued operations
	exit chan struct{}
	done chan struct{}
}

func (w *roomWorker) start() {
	defer close(w.done)

	w.log.Debug().Msg("starting room worker")
	w.killTimer = time.NewTimer(w.svc.opts.IdleTimeout)
	defer w.killTimer.Stop()

	for {
		select {
		case op := <-w.ops:
			w.run(op)
			w.killTimer.Reset(w.svc.opts.IdleTimeout)
		case <-w.killTimer.C:
			if w.svc.unloadIdle(w) {
				w.log.Debug().Msg("room idle, worker unloaded")
				return
			}
			w.killTimer.Reset(w.svc.opts.IdleTimeout)
		case <-w.exit:
			w.drain()
			w.log.Debug().Msg("room worker exiting")
			return
		}
	}
}

func (w *roomWorker) drain() {
	for {
		select {
		case op := <-w.ops:
			w.run(op)
		default:
			return
		}
	}
}

func (w *roomWorker) run(op *roomOp) {
	var res opResult
	defer func() {
		if r := recover(); r != nil {
			res = opResult{err: fmt.Errorf("room operation %s panicked: %v", op.name, r)}
			w.log.Error().Err(res.err).Msg("recovered from panic")
		}

		if op.result != nil {
			op.result <- res
		} else if res.err != nil {
			w.log.Warn().Err(res.err).Str("op", op.name).Msg("room operation failed")
		}
	}()

	if err := op.ctx.Err(); err != nil {
		res.err = err
		return
	}

	ctx, cancel := context.WithTimeout(op.ctx, w.svc.opts.OpTimeout)
	defer cancel()

	res.value, res.err = op.fn(ctx)
}

// submit queues fn on the room's worker. With wait set it blocks until the
// operation ran or ctx is done; otherwise it returns once fn is queued.
func (s *Service) submit(ctx context.Context, roomId, name string, wait bool, fn opFunc) (any, error) {
	op := &roomOp{ctx: ctx, name: name, fn: fn}
	if wait {
		op.result = make(chan opResult, 1)
	}

	s.workersLock.Lock()
	if s.stopping {
		s.workersLock.Unlock()
		return nil, errShuttingDown
	}

	w, ok := s.workers[roomId]
	if !ok {
		w = &roomWorker{
			roomId: roomId,
			svc:    s,
			log:    s.log.With().Str("room_id", roomId).Logger(),
			ops:    make(chan *roomOp, s.opts.QueueSize),
			exit:   make(chan struct{}),
			done:   make(chan struct{}),
		}
		s.workers[roomId] = w
		s.stats.Incr(stats.LoadedRooms)
		go w.start()
	}

	select {
	case w.ops <- op:
	default:
		s.workersLock.Unlock()
		w.log.Warn().Str("op", name).Msg("room queue full")
		return nil, fmt.Errorf("room %q: %w", roomId, types.ErrBusy)
	}
	s.workersLock.Unlock()

	if !wait {
		return nil, nil
	}

	select {
	case res := <-op.result:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// unloadIdle removes w from the worker table if nothing is queued on it.
func (s *Service) unloadIdle(w *roomWorker) bool {
	s.workersLock.Lock()
	defer s.workersLock.Unlock()

	if len(w.ops) > 0 || s.stopping {
		return false
	}

	if s.workers[w.roomId] == w {
		delete(s.workers, w.roomId)
		s.stats.Decr(stats.LoadedRooms)
	}
	return true
}

// exec runs fn on the room worker. Realtime callers do not wait for the
// result and get the zero value back.
func exec[T any](ctx context.Context, s *Service, caller Caller, roomId, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if caller.realtime() {
		ctx = context.WithoutCancel(ctx)
	}

	v, err := s.submit(ctx, roomId, name, !caller.realtime(), func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil || v == nil {
		return zero, err
	}

	return v.(T), nil
}
