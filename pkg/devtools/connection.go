package devtools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// inboundSubscriber is what Connection routes Messages to. Session is the
// only implementation; it is kept as an interface so Connection and
// Session can be tested independently of each other.
type inboundSubscriber interface {
	handleInbound(msg *Message)
	handleFatal(err error)
}

// discardSubscriber is used for fire-and-forget calls issued outside any
// Protocol (e.g. best-effort cleanup during Session retirement).
type discardSubscriber struct{}

func (discardSubscriber) handleInbound(*Message) {}
func (discardSubscriber) handleFatal(error)      {}

// Connection owns one Transport (and therefore one BrowserProcess),
// assigns monotonically increasing call ids, and fans inbound messages
// out to the Sessions that issued or are waiting on them. The call-id
// counter and the call-id→subscriber table are the only shared mutable
// state in the engine and are protected by a single mutex.
type Connection struct {
	transport *Transport
	log       Logger
	userDataDir string

	mu        sync.Mutex
	nextID    int64
	byCallID  map[int64]inboundSubscriber
	bySession map[string]inboundSubscriber
	active    map[inboundSubscriber]struct{} // subscribers with an in-flight Protocol

	onFatal func(error)

	fatalOnce sync.Once
}

// OpenConnection starts a new browser subprocess and its inbound reader.
func OpenConnection(ctx context.Context, cfg Config, log Logger) (*Connection, error) {
	if log == nil {
		log = NopLogger()
	}
	base := os.TempDir()
	if root, ok := os.LookupEnv(OutputRootEnv); ok {
		base = root
	}
	userDataDir := filepath.Join(base, "chrome-print-"+uuid.NewString())

	transport, err := spawnTransport(ctx, cfg, userDataDir, log)
	if err != nil {
		return nil, err
	}

	c := &Connection{
		transport:   transport,
		log:         log,
		userDataDir: userDataDir,
		nextID:      1,
		byCallID:    make(map[int64]inboundSubscriber),
		bySession:   make(map[string]inboundSubscriber),
		active:      make(map[inboundSubscriber]struct{}),
	}
	go c.readLoop()
	return c, nil
}

// OutputRootEnv optionally overrides the default parent directory (Go's
// os.TempDir()) under which per-Connection user data directories are
// created.
const OutputRootEnv = "CDP_OUTPUT_ROOT"

// dispatch serializes {id, sessionId, method, params}, hands it to the
// Transport, and registers sub as the recipient of the eventual response.
// It returns the assigned call id so the caller can correlate it. Call ids
// are unique and strictly increasing within this Connection (property
// P2).
func (c *Connection) dispatch(sessionID, method string, params json.RawMessage, sub inboundSubscriber) (int64, error) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.byCallID[id] = sub
	c.mu.Unlock()

	msg := Message{ID: id, SessionID: sessionID, Method: method, Params: params}
	b, err := json.Marshal(msg)
	if err != nil {
		c.mu.Lock()
		delete(c.byCallID, id)
		c.mu.Unlock()
		return 0, wrapError(KindProtocolError, err, "marshal %s", method)
	}
	if err := c.transport.send(b); err != nil {
		c.mu.Lock()
		delete(c.byCallID, id)
		c.mu.Unlock()
		return 0, err
	}
	return id, nil
}

// bindSession registers sub as the owner of a browser-attached DevTools
// session id, for event routing, and marks it active for the
// sessionId-less broadcast set. Called once a Session's bootstrap
// protocol discovers its attached sessionId.
func (c *Connection) bindSession(sessionID string, sub inboundSubscriber) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bySession[sessionID] = sub
	c.active[sub] = struct{}{}
}

// unbindSession scrubs every table entry owned by sub. Per the design
// notes, the call-id→Session association is a weak, table-keyed
// association, not an ownership edge: when a Session retires its entries
// are removed here, not freed via any reference-counting scheme.
func (c *Connection) unbindSession(sessionID string, sub inboundSubscriber) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.bySession, sessionID)
	delete(c.active, sub)
	for id, s := range c.byCallID {
		if s == sub {
			delete(c.byCallID, id)
		}
	}
}

func (c *Connection) readLoop() {
	for {
		frame, ok := c.transport.recv()
		if !ok {
			c.onTransportClosed()
			return
		}
		var m Message
		if err := json.Unmarshal(frame, &m); err != nil {
			c.log.Warnf("discarding malformed CDP message: %v", err)
			continue
		}
		c.route(&m)
	}
}

// route implements the inbound routing rules: a response (has ID) goes to
// whoever issued that call id; an event with a sessionId goes to the
// Session attached to that target; a browser-scoped event (no sessionId)
// is broadcast to every Session with an in-flight Protocol, since
// unmatched events are harmlessly dropped by the Protocol engine.
func (c *Connection) route(m *Message) {
	if m.isResponse() {
		c.mu.Lock()
		sub, ok := c.byCallID[m.ID]
		delete(c.byCallID, m.ID)
		c.mu.Unlock()
		if ok {
			sub.handleInbound(m)
		}
		return
	}
	if m.SessionID != "" {
		c.mu.Lock()
		sub, ok := c.bySession[m.SessionID]
		c.mu.Unlock()
		if ok {
			sub.handleInbound(m)
		}
		return
	}
	c.mu.Lock()
	subs := make([]inboundSubscriber, 0, len(c.active))
	for sub := range c.active {
		subs = append(subs, sub)
	}
	c.mu.Unlock()
	for _, sub := range subs {
		sub.handleInbound(m)
	}
}

// onTransportClosed fires {error, browser_died} to every in-flight
// Protocol and calls the onFatal hook, if one is set, exactly once.
// OpenConnection and SessionPool set no onFatal hook, so a Supervisor is
// not told of the loss here; it learns of it only when its pool next
// fails to bootstrap a replacement Session.
func (c *Connection) onTransportClosed() {
	err := newError(KindBrowserDied)
	c.log.Errorf("browser transport closed: %v", err)

	c.mu.Lock()
	seen := make(map[inboundSubscriber]struct{}, len(c.byCallID)+len(c.bySession))
	for _, sub := range c.byCallID {
		seen[sub] = struct{}{}
	}
	for _, sub := range c.bySession {
		seen[sub] = struct{}{}
	}
	for sub := range c.active {
		seen[sub] = struct{}{}
	}
	c.mu.Unlock()

	for sub := range seen {
		sub.handleFatal(err)
	}

	c.fatalOnce.Do(func() {
		if c.onFatal != nil {
			c.onFatal(err)
		}
	})
}

// Stop tears down the Transport (and therefore the browser process).
func (c *Connection) Stop(timeout time.Duration) error {
	err := c.transport.stop(timeout)
	os.RemoveAll(c.userDataDir)
	return err
}
