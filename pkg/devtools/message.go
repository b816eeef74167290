// Package devtools drives a headless Chromium subprocess over the Chrome
// DevTools Protocol (CDP), using a null-byte-framed pipe transport instead
// of a WebSocket. It implements a pool of independent Sessions, each bound
// to its own browser target, and a small per-request Protocol engine that
// advances a programmable sequence of outgoing calls and expected
// responses/events — correctly even when the browser replies out of order.
package devtools

import (
	"encoding/json"
	"fmt"
)

// RPCError is the `error` object the browser embeds in a CDP response
// when a command fails.
//
// https://chromedevtools.github.io/devtools-protocol/tot/Network/#type-Response
type RPCError struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
}

// Error satisfies the Go error interface.
func (e *RPCError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Code)
}

// Message is a generic CDP message, sent to or received from the browser.
// A solicited response carries ID and either Result or Error; an
// unsolicited event carries Method and Params instead.
type Message struct {
	ID        int64           `json:"id,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Method    string          `json:"method,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *RPCError       `json:"error,omitempty"`
}

// isResponse reports whether this message is a solicited response rather
// than an unsolicited event.
func (m *Message) isResponse() bool {
	return m.Method == ""
}
