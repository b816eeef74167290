package devtools

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeBrowser reads commands dispatched by a Session/Connection under
// test from toBrowser and answers each with a canned response, driven by
// a caller-supplied table of method -> result JSON. It exits when
// toBrowser is closed.
func fakeBrowser(t *testing.T, toBrowser, fromBrowser *os.File, results map[string]string) {
	t.Helper()
	go func() {
		scanner := bufio.NewScanner(toBrowser)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		scanner.Split(scanNullFrames)
		for scanner.Scan() {
			var m Message
			if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
				continue
			}
			result, ok := results[m.Method]
			if !ok {
				result = "{}"
			}
			reply := Message{ID: m.ID, Result: json.RawMessage(result)}
			b, _ := json.Marshal(reply)
			fromBrowser.Write(append(b, 0))
		}
	}()
}

func bootstrapResults() map[string]string {
	return map[string]string{
		"Target.createBrowserContext": `{"browserContextId":"ctx-1"}`,
		"Target.createTarget":         `{"targetId":"target-1"}`,
		"Target.attachToTarget":       `{"sessionId":"devsess-1"}`,
	}
}

func TestSessionStartBootstraps(t *testing.T) {
	c, toBrowser, fromBrowser := newTestConnection(t)
	fakeBrowser(t, toBrowser, fromBrowser, bootstrapResults())

	s := newSession(c, 3, NopLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cfg := DefaultConfig()
	require.NoError(t, s.start(ctx, cfg))
	require.Equal(t, "target-1", s.TargetID())
	require.Equal(t, sessionIdle, s.state)
}

// TestSessionRejectsConcurrentRun covers property P3: a Session runs at
// most one Protocol at a time.
func TestSessionRejectsConcurrentRun(t *testing.T) {
	c, toBrowser, fromBrowser := newTestConnection(t)
	fakeBrowser(t, toBrowser, fromBrowser, bootstrapResults())

	s := newSession(c, 10, NopLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.start(ctx, DefaultConfig()))

	blocked := NewProtocol("blocked", true, 0, []Step{Await(MatchCallID("never", nil))})
	require.NoError(t, s.Run(blocked, func(Result) {}))

	second := NewProtocol("second", true, 0, nil)
	err := s.Run(second, func(Result) {})
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, KindBusy, kind)
}

// TestSessionRecyclesAfterMaxUses covers the use-count recycling rule.
func TestSessionRecyclesAfterMaxUses(t *testing.T) {
	c, toBrowser, fromBrowser := newTestConnection(t)
	fakeBrowser(t, toBrowser, fromBrowser, bootstrapResults())

	s := newSession(c, 2, NopLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.start(ctx, DefaultConfig()))

	for i := 0; i < 2; i++ {
		done := make(chan Result, 1)
		trivial := NewProtocol("counting", true, 0, []Step{
			Output(func(state State) (interface{}, error) { return nil, nil }),
		})
		require.NoError(t, s.Run(trivial, func(r Result) { done <- r }))
		<-done
	}
	require.True(t, s.isRetired())
}

// TestSessionRetiresOnProtocolError ensures a protocol_error result
// retires the Session immediately, regardless of use count.
func TestSessionRetiresOnProtocolError(t *testing.T) {
	c, toBrowser, fromBrowser := newTestConnection(t)
	fakeBrowser(t, toBrowser, fromBrowser, bootstrapResults())

	s := newSession(c, 10, NopLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.start(ctx, DefaultConfig()))

	done := make(chan Result, 1)
	failing := NewProtocol("failing", true, 0, []Step{
		Call(func(state State, dispatch DispatchFunc) (State, error) {
			return state, context.DeadlineExceeded
		}),
	})
	require.NoError(t, s.Run(failing, func(r Result) { done <- r }))
	<-done
	require.True(t, s.isRetired())
}
