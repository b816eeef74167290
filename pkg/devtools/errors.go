package devtools

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind tags an EngineError with one of the error kinds named in the
// error handling design: spawn_failed, transport_closed/browser_died,
// protocol_error, timeout, pool_exhausted, plus busy (named separately by
// the Session contract).
type ErrorKind string

// The error kinds the engine reports to callers.
const (
	KindSpawnFailed     ErrorKind = "spawn_failed"
	KindTransportClosed ErrorKind = "transport_closed"
	KindBrowserDied     ErrorKind = "browser_died"
	KindProtocolError   ErrorKind = "protocol_error"
	KindTimeout         ErrorKind = "timeout"
	KindPoolExhausted   ErrorKind = "pool_exhausted"
	KindBusy            ErrorKind = "busy"
)

// EngineError is an error tagged with one of the kinds above. It is what
// a Protocol's result callback receives as {error, kind, detail}.
type EngineError struct {
	Kind ErrorKind
	Err  error
}

func (e *EngineError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap lets callers use errors.Is/errors.As against the wrapped cause.
func (e *EngineError) Unwrap() error { return e.Err }

func newError(kind ErrorKind) *EngineError {
	return &EngineError{Kind: kind}
}

func wrapError(kind ErrorKind, err error, format string, args ...interface{}) *EngineError {
	return &EngineError{Kind: kind, Err: errors.Wrapf(err, format, args...)}
}

// KindOf returns the ErrorKind carried by err, if any, and whether one was
// found.
func KindOf(err error) (ErrorKind, bool) {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Kind, true
	}
	return "", false
}
