package devtools

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/daabr/chrome-print/pkg/devtools/protocols/inspector"
	"github.com/daabr/chrome-print/pkg/devtools/protocols/network"
	"github.com/daabr/chrome-print/pkg/devtools/protocols/security"
	"github.com/daabr/chrome-print/pkg/devtools/protocols/target"
)

// sessionState is the Session actor's lifecycle state:
//
//	idle --run--> busy --protocol-finished--> idle
//	busy --inbound--> busy
//	idle/busy --use-count==max & idle--> retired (terminal)
//	any --connection-died--> retired (terminal)
type sessionState int

const (
	sessionIdle sessionState = iota
	sessionBusy
	sessionRetired
)

// Session is a single worker bound to one browser target inside one
// browser context. It runs one Protocol at a time to completion, counts
// uses, and recycles itself when the use budget is exhausted.
type Session struct {
	id   string
	conn *Connection
	log  Logger

	maxUses int

	mu       sync.Mutex
	state    sessionState
	useCount int

	contextID         string
	targetID          string
	devToolsSessionID string

	current *Protocol
	timer   *time.Timer
}

func newSession(conn *Connection, maxUses int, log Logger) *Session {
	if maxUses <= 0 {
		maxUses = 1
	}
	return &Session{id: uuid.NewString(), conn: conn, maxUses: maxUses, log: log}
}

// bootstrapResult is the value a bootstrap Protocol's output step
// delivers: the browser context, target, and attached DevTools session ids.
type bootstrapResult struct {
	BrowserContextID string
	TargetID         string
	SessionID        string
}

// bootstrapSteps builds the bootstrap protocol:
// createBrowserContext, createTarget(about:blank), attachToTarget
// (flatten=true), plus the optional offline/ignore-certificate-errors
// preludes, each appended only when configured. It is a method so the
// attachToTarget step can bind s.devToolsSessionID the moment the id is
// known, before any later step in the same protocol dispatches through it.
func (s *Session) bootstrapSteps(cfg Config) []Step {
	steps := []Step{
		Call(func(state State, dispatch DispatchFunc) (State, error) {
			id, err := dispatch("Target.createBrowserContext", nil)
			if err != nil {
				return state, err
			}
			state["createBrowserContext.id"] = id
			return state, nil
		}),
		Await(MatchCallID("createBrowserContext.id", func(state State, result json.RawMessage) (State, error) {
			var r target.CreateBrowserContextResult
			if err := json.Unmarshal(result, &r); err != nil {
				return state, err
			}
			state["browserContextId"] = r.BrowserContextID
			return state, nil
		})),
		Call(func(state State, dispatch DispatchFunc) (State, error) {
			params, err := json.Marshal(target.NewCreateTarget("about:blank").
				SetBrowserContextID(state["browserContextId"].(string)))
			if err != nil {
				return state, err
			}
			id, err := dispatch("Target.createTarget", params)
			if err != nil {
				return state, err
			}
			state["createTarget.id"] = id
			return state, nil
		}),
		Await(MatchCallID("createTarget.id", func(state State, result json.RawMessage) (State, error) {
			var r target.CreateTargetResult
			if err := json.Unmarshal(result, &r); err != nil {
				return state, err
			}
			state["targetId"] = r.TargetID
			return state, nil
		})),
		Call(func(state State, dispatch DispatchFunc) (State, error) {
			params, err := json.Marshal(target.NewAttachToTarget(state["targetId"].(string)))
			if err != nil {
				return state, err
			}
			id, err := dispatch("Target.attachToTarget", params)
			if err != nil {
				return state, err
			}
			state["attachToTarget.id"] = id
			return state, nil
		}),
		Await(MatchCallID("attachToTarget.id", func(state State, result json.RawMessage) (State, error) {
			var r target.AttachToTargetResult
			if err := json.Unmarshal(result, &r); err != nil {
				return state, err
			}
			state["sessionId"] = r.SessionID
			s.mu.Lock()
			s.devToolsSessionID = r.SessionID
			s.mu.Unlock()
			s.conn.bindSession(r.SessionID, s)
			return state, nil
		})),
	}

	if cfg.Offline {
		steps = append(steps,
			Call(func(state State, dispatch DispatchFunc) (State, error) {
				params, err := json.Marshal(network.NewOffline())
				if err != nil {
					return state, err
				}
				id, err := dispatch("Network.emulateNetworkConditions", params)
				if err != nil {
					return state, err
				}
				state["offline.id"] = id
				return state, nil
			}),
			Await(MatchCallID("offline.id", nil)),
		)
	}

	if cfg.IgnoreCertificateErrors {
		steps = append(steps,
			Call(func(state State, dispatch DispatchFunc) (State, error) {
				params, err := json.Marshal(security.NewIgnore())
				if err != nil {
					return state, err
				}
				id, err := dispatch("Security.setIgnoreCertificateErrors", params)
				if err != nil {
					return state, err
				}
				state["ignoreCertErrors.id"] = id
				return state, nil
			}),
			Await(MatchCallID("ignoreCertErrors.id", nil)),
		)
	}

	return append(steps, Output(func(state State) (interface{}, error) {
		return bootstrapResult{
			BrowserContextID: state["browserContextId"].(string),
			TargetID:         state["targetId"].(string),
			SessionID:        state["sessionId"].(string),
		}, nil
	}))
}

// start registers a new target with the Connection by running the
// bootstrap protocol, whose attachToTarget step binds this Session for
// event routing as soon as the attach response arrives.
func (s *Session) start(ctx context.Context, cfg Config) error {
	proto := NewProtocol("bootstrap", false, cfg.InitTimeout, s.bootstrapSteps(cfg))

	done := make(chan Result, 1)
	if err := s.Run(proto, func(r Result) { done <- r }); err != nil {
		return err
	}

	timeout := cfg.InitTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	select {
	case r := <-done:
		if r.Err != nil {
			return r.Err
		}
		br := r.Value.(bootstrapResult)
		s.contextID = br.BrowserContextID
		s.targetID = br.TargetID
		s.log.Infof("session %s bootstrapped: target=%s devtoolsSession=%s", s.id, s.targetID, s.devToolsSessionID)
		return nil
	case <-ctx.Done():
		return wrapError(KindTimeout, ctx.Err(), "session bootstrap")
	case <-time.After(timeout):
		return newError(KindTimeout)
	}
}

// Run accepts one Protocol, installs resultFn as its result callback, and
// drives it to completion (or its first suspension on an await). It
// rejects with busy if a Protocol is already running.
func (s *Session) Run(p *Protocol, resultFn func(Result)) error {
	s.mu.Lock()
	switch s.state {
	case sessionBusy:
		s.mu.Unlock()
		return newError(KindBusy)
	case sessionRetired:
		s.mu.Unlock()
		return newError(KindBrowserDied)
	}
	s.state = sessionBusy
	s.current = p
	s.mu.Unlock()

	p.resultFn = func(r Result) { s.finishProtocol(p, r, resultFn) }

	if p.Timeout > 0 {
		s.mu.Lock()
		s.timer = time.AfterFunc(p.Timeout, func() {
			s.mu.Lock()
			active := s.current == p
			s.mu.Unlock()
			if active {
				p.fail(newError(KindTimeout))
			}
		})
		s.mu.Unlock()
	}

	p.advance(s.dispatchFor(p))
	return nil
}

func (s *Session) dispatchFor(p *Protocol) DispatchFunc {
	return func(method string, params json.RawMessage) (int64, error) {
		s.mu.Lock()
		sessionID := s.devToolsSessionID
		s.mu.Unlock()
		return s.conn.dispatch(sessionID, method, params, s)
	}
}

// handleInbound feeds one message to the current Protocol via the engine.
// Inspector.targetCrashed is logged with operator-facing remediation
// hints but does not itself terminate the Protocol; the configured
// timeout does that.
func (s *Session) handleInbound(msg *Message) {
	if msg.Method == inspector.EventTargetCrashed {
		s.log.Errorf("target crashed (session=%s): consider enabling shared memory (--disable-dev-shm-usage tradeoffs) or avoiding external stylesheet links", s.devToolsSessionID)
	}

	s.mu.Lock()
	p := s.current
	s.mu.Unlock()
	if p == nil {
		return
	}
	p.deliverMessage(msg, s.dispatchFor(p))
}

// handleFatal terminates the in-flight Protocol with browser_died and
// retires the Session permanently.
func (s *Session) handleFatal(err error) {
	s.mu.Lock()
	p := s.current
	s.state = sessionRetired
	s.mu.Unlock()
	if p != nil {
		p.fail(wrapError(KindBrowserDied, err, "connection lost mid-protocol"))
	}
}

// finishProtocol runs after a Protocol delivers its result: it stops the
// deadline timer, forwards the result to the caller, and decides whether
// the Session returns to idle, is marked to-be-recycled (use count
// exhausted), or retires outright (protocol_error/timeout).
func (s *Session) finishProtocol(p *Protocol, r Result, resultFn func(Result)) {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()

	resultFn(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == p {
		s.current = nil
	}
	if s.state == sessionRetired {
		return
	}
	if r.Err != nil {
		if kind, ok := KindOf(r.Err); ok && (kind == KindProtocolError || kind == KindTimeout) {
			s.state = sessionRetired
			return
		}
	}
	if p.Counts {
		s.useCount++
	}
	if s.useCount >= s.maxUses {
		s.state = sessionRetired
		return
	}
	s.state = sessionIdle
}

// isRetired reports whether this Session has reached its terminal state.
func (s *Session) isRetired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == sessionRetired
}

// UseCount returns the number of counting Protocols this Session has
// completed so far.
func (s *Session) UseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.useCount
}

// TargetID returns the browser target id this Session owns, for tests and
// diagnostics.
func (s *Session) TargetID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.targetID
}

// retire best-effort detaches and disposes this Session's target and
// browser context, then scrubs it from the Connection's routing tables.
// Called by the pool once a retired Session is checked back in.
func (s *Session) retire() {
	s.mu.Lock()
	sessionID, targetID, contextID := s.devToolsSessionID, s.targetID, s.contextID
	s.mu.Unlock()

	if sessionID != "" {
		detach, err := json.Marshal(target.DetachFromTarget{SessionID: sessionID})
		if err == nil {
			s.conn.dispatch(sessionID, "Target.detachFromTarget", detach, discardSubscriber{})
		}
	}
	if targetID != "" {
		closeParams, err := json.Marshal(target.CloseTarget{TargetID: targetID})
		if err == nil {
			s.conn.dispatch("", "Target.closeTarget", closeParams, discardSubscriber{})
		}
	}
	if contextID != "" {
		disposeParams, err := json.Marshal(target.DisposeBrowserContext{BrowserContextID: contextID})
		if err == nil {
			s.conn.dispatch("", "Target.disposeBrowserContext", disposeParams, discardSubscriber{})
		}
	}
	s.conn.unbindSession(sessionID, s)
}
