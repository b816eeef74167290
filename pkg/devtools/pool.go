package devtools

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// SessionPool manages the fixed-size concurrency budget for Sessions. In
// its default (shared-connection) mode it keeps cfg.SessionPoolSize
// Sessions bootstrapped against one long-lived Connection/browser process
// and hands them out from an idle set: Checkout either returns one
// immediately or fails with pool_exhausted — callers never block past the
// timeout they pass in, and a failed checkout never enqueues behind
// others (no queueing, by design).
//
// In cfg.OnDemand mode there is no persistent Connection at all: Checkout
// spawns a fresh browser process and a single Session for the caller, and
// Checkin stops that process, trading per-request latency for zero idle
// resource use between requests. tokens bounds how many on-demand
// browsers may be alive concurrently.
type SessionPool struct {
	cfg Config
	log Logger

	// openConn is OpenConnection by default; overridable so on-demand
	// checkout can be tested without spawning a real browser.
	openConn func(ctx context.Context, cfg Config, log Logger) (*Connection, error)

	// shared-connection mode.
	conn *Connection
	idle chan *Session

	// on-demand mode.
	tokens chan struct{}

	mu      sync.Mutex
	size    int
	closed  bool
	onCrash func(error)
}

// NewSessionPool prepares a pool of capacity cfg.SessionPoolSize. In
// shared-connection mode it opens one Connection up front and bootstraps
// every Session against it, dropping (and logging) any that fail; the
// pool's effective size is however many bootstrapped successfully, which
// may be fewer than requested if the browser is slow to spin up targets.
// In on-demand mode no browser process is started here at all — tokens
// are simply reserved for later Checkouts.
func NewSessionPool(ctx context.Context, cfg Config, log Logger) (*SessionPool, error) {
	if log == nil {
		log = NopLogger()
	}

	size := cfg.SessionPoolSize
	if size <= 0 {
		size = runtime.NumCPU()
	}

	p := &SessionPool{cfg: cfg, log: log, size: size}

	if cfg.OnDemand {
		p.tokens = make(chan struct{}, size)
		for i := 0; i < size; i++ {
			p.tokens <- struct{}{}
		}
		return p, nil
	}

	conn, err := OpenConnection(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	p.conn = conn
	p.idle = make(chan *Session, size)

	bootstrapped := 0
	for i := 0; i < size; i++ {
		s := newSession(conn, cfg.MaxSessionUses, log)
		if err := s.start(ctx, cfg); err != nil {
			log.Warnf("session %d/%d failed to bootstrap: %v", i+1, size, err)
			continue
		}
		p.idle <- s
		bootstrapped++
	}

	if bootstrapped == 0 {
		conn.Stop(cfg.Timeout)
		return nil, wrapError(KindSpawnFailed, err, "bootstrap any session in a pool of %d", size)
	}
	return p, nil
}

// Checkout hands back a Session. In shared-connection mode that means an
// idle Session from the pool, replacing it with a fresh one first if it
// had been retired. In on-demand mode it spawns a brand new browser
// process and Session, bounded by the pool's token budget. Either way it
// never blocks past timeout: an immediate non-blocking probe is tried
// first, then a timeout-bounded wait, and anything beyond that fails with
// pool_exhausted rather than queueing.
func (p *SessionPool) Checkout(ctx context.Context, timeout time.Duration) (*Session, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, newError(KindPoolExhausted)
	}

	if p.cfg.OnDemand {
		return p.checkoutOnDemand(ctx, timeout)
	}

	select {
	case s, ok := <-p.idle:
		if !ok {
			return nil, newError(KindPoolExhausted)
		}
		return p.prepareCheckout(ctx, s)
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case s, ok := <-p.idle:
		if !ok {
			return nil, newError(KindPoolExhausted)
		}
		return p.prepareCheckout(ctx, s)
	case <-timer.C:
		return nil, newError(KindPoolExhausted)
	case <-ctx.Done():
		return nil, wrapError(KindPoolExhausted, ctx.Err(), "checkout cancelled")
	}
}

// prepareCheckout replaces a retired Session with a freshly bootstrapped
// one (routine recycling after a protocol_error/timeout retirement)
// before handing it to the caller. A Session that is still idle is
// returned as-is.
func (p *SessionPool) prepareCheckout(ctx context.Context, s *Session) (*Session, error) {
	if !s.isRetired() {
		return s, nil
	}
	fresh := newSession(p.conn, p.cfg.MaxSessionUses, p.log)
	if err := fresh.start(ctx, p.cfg); err != nil {
		p.mu.Lock()
		crashHook := p.onCrash
		p.mu.Unlock()
		if crashHook != nil {
			crashHook(err)
		}
		return nil, err
	}
	return fresh, nil
}

// checkoutOnDemand acquires a token, spawns a fresh Connection and a
// single Session against it, and returns the Session. If either step
// fails the token is returned to the pool; when the Session's bootstrap is
// what failed, the freshly opened Connection is stopped first.
func (p *SessionPool) checkoutOnDemand(ctx context.Context, timeout time.Duration) (*Session, error) {
	select {
	case <-p.tokens:
	default:
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-p.tokens:
		case <-timer.C:
			return nil, newError(KindPoolExhausted)
		case <-ctx.Done():
			return nil, wrapError(KindPoolExhausted, ctx.Err(), "checkout cancelled")
		}
	}

	openConn := p.openConn
	if openConn == nil {
		openConn = OpenConnection
	}

	conn, err := openConn(ctx, p.cfg, p.log)
	if err != nil {
		p.tokens <- struct{}{}
		return nil, err
	}

	s := newSession(conn, p.cfg.MaxSessionUses, p.log)
	if err := s.start(ctx, p.cfg); err != nil {
		conn.Stop(p.cfg.Timeout)
		p.tokens <- struct{}{}
		p.mu.Lock()
		crashHook := p.onCrash
		p.mu.Unlock()
		if crashHook != nil {
			crashHook(err)
		}
		return nil, err
	}
	return s, nil
}

// Checkin returns a Session after use. In shared-connection mode an
// unretired Session goes back to the idle set as-is; a retired one is
// replaced with a freshly bootstrapped Session so pool capacity stays
// constant. In on-demand mode the Session's own Connection (and therefore
// its browser process) is always stopped, and its token is freed.
func (p *SessionPool) Checkin(ctx context.Context, s *Session) {
	if p.cfg.OnDemand {
		s.conn.Stop(p.cfg.Timeout)
		p.mu.Lock()
		closed := p.closed
		p.mu.Unlock()
		if !closed {
			p.tokens <- struct{}{}
		}
		return
	}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		s.retire()
		return
	}

	if !s.isRetired() {
		p.idle <- s
		return
	}

	s.retire()
	fresh := newSession(p.conn, p.cfg.MaxSessionUses, p.log)
	if err := fresh.start(ctx, p.cfg); err != nil {
		p.log.Errorf("failed to replace recycled session: %v", err)
		p.mu.Lock()
		crashHook := p.onCrash
		p.mu.Unlock()
		if crashHook != nil {
			crashHook(err)
		}
		return
	}
	p.idle <- fresh
}

// Size returns the pool's configured capacity (not the current idle
// count, nor how many on-demand browsers are presently alive).
func (p *SessionPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.size
}

// OnCrash registers a callback invoked whenever a Session replacement (or,
// in on-demand mode, a fresh checkout) fails to bootstrap, which — if it
// keeps happening — usually means the browser binary itself is broken.
// The Supervisor uses this hook to decide when to restart the whole pool.
func (p *SessionPool) OnCrash(fn func(error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onCrash = fn
}

// Close stops accepting checkins/checkouts and tears down whatever browser
// process(es) the pool currently owns: the single shared Connection in
// shared-connection mode, or nothing in on-demand mode, since each
// checked-out Session already owns (and tears down) its own Connection.
func (p *SessionPool) Close(timeout time.Duration) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	if p.cfg.OnDemand {
		return nil
	}

	close(p.idle)
	for s := range p.idle {
		s.retire()
	}
	return p.conn.Stop(timeout)
}
