package devtools

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Supervisor owns the restart policy above SessionPool: a Connection (and
// therefore every Session sharing it) is
// restarted wholesale on transport death, while a single misbehaving
// Session is retired without disturbing its siblings. SessionPool already
// handles the latter; Supervisor adds the former by rebuilding the whole
// pool when the shared Connection goes down.
type Supervisor struct {
	cfg Config
	log Logger

	mu      sync.Mutex
	pool    *SessionPool
	closed  bool
	restarts int
}

// NewSupervisor builds an initial SessionPool and wires its crash hook
// back into the Supervisor's restart logic.
func NewSupervisor(ctx context.Context, cfg Config, log Logger) (*Supervisor, error) {
	if log == nil {
		log = NopLogger()
	}
	sv := &Supervisor{cfg: cfg, log: log}
	pool, err := NewSessionPool(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	sv.pool = pool
	pool.OnCrash(sv.onCrash)
	return sv, nil
}

// onCrash is invoked by the active SessionPool whenever it fails to
// replace a retired Session — the signal that the shared browser process
// has died rather than one target misbehaving. It rebuilds a fresh pool
// in the background. Once the old pool is closed, Checkouts against it
// fail with pool_exhausted, and Sessions already checked out from it see
// browser_died when its Connection stops.
func (sv *Supervisor) onCrash(err error) {
	sv.log.Errorf("session pool reported a crash, restarting: %v", err)
	go sv.restart(context.Background())
}

func (sv *Supervisor) restart(ctx context.Context) {
	sv.mu.Lock()
	if sv.closed {
		sv.mu.Unlock()
		return
	}
	old := sv.pool
	sv.mu.Unlock()

	fresh, err := NewSessionPool(ctx, sv.cfg, sv.log)
	if err != nil {
		sv.log.Errorf("supervisor restart failed, retrying later: %v", err)
		return
	}
	fresh.OnCrash(sv.onCrash)

	sv.mu.Lock()
	if sv.closed {
		sv.mu.Unlock()
		fresh.Close(sv.cfg.Timeout)
		return
	}
	sv.pool = fresh
	sv.restarts++
	sv.mu.Unlock()

	old.Close(sv.cfg.Timeout)
}

// Pool returns the currently active SessionPool. Its identity can change
// across a restart, so callers should re-fetch it rather than caching the
// pointer across long-lived operations.
func (sv *Supervisor) Pool() *SessionPool {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	return sv.pool
}

// Restarts reports how many times the Supervisor has rebuilt the pool,
// for diagnostics and tests.
func (sv *Supervisor) Restarts() int {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	return sv.restarts
}

// Warm concurrently checks count Sessions out of the active pool and
// immediately back in, one goroutine per Session with no concurrency
// limit, and returns the first error via errgroup. In shared-connection
// mode this replaces retired idle Sessions; in on-demand mode each
// checkin stops the browser it just started, so nothing stays warm.
func (sv *Supervisor) Warm(ctx context.Context, count int, timeout time.Duration) error {
	pool := sv.Pool()
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < count; i++ {
		g.Go(func() error {
			s, err := pool.Checkout(ctx, timeout)
			if err != nil {
				return err
			}
			pool.Checkin(ctx, s)
			return nil
		})
	}
	return g.Wait()
}

// Close stops accepting restarts and tears down the active pool.
func (sv *Supervisor) Close(timeout time.Duration) error {
	sv.mu.Lock()
	if sv.closed {
		sv.mu.Unlock()
		return nil
	}
	sv.closed = true
	pool := sv.pool
	sv.mu.Unlock()
	return pool.Close(timeout)
}
