package devtools

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callStep(method string, idKey string) Step {
	return Call(func(state State, dispatch DispatchFunc) (State, error) {
		id, err := dispatch(method, nil)
		if err != nil {
			return state, err
		}
		state[idKey] = id
		return state, nil
	})
}

// TestAdvanceOutOfOrderMatch covers property P5: the engine matches a
// reply against the right pending await even when the browser answers
// out of call order.
func TestAdvanceOutOfOrderMatch(t *testing.T) {
	var gotA, gotB bool
	steps := []Step{
		callStep("A", "a.id"),
		callStep("B", "b.id"),
		Await(MatchCallID("a.id", func(state State, result json.RawMessage) (State, error) {
			gotA = true
			return state, nil
		})),
		Await(MatchCallID("b.id", func(state State, result json.RawMessage) (State, error) {
			gotB = true
			return state, nil
		})),
	}
	// Drive both calls first so both awaits are pending simultaneously.
	ids := map[string]int64{}
	dispatch := func(method string, params json.RawMessage) (int64, error) {
		id := int64(len(ids) + 1)
		ids[method] = id
		return id, nil
	}

	p := NewProtocol("t", false, 0, steps)
	p.advance(dispatch) // runs A's and B's calls, pauses on the two awaits
	// Answer B before A, the reverse of the call order.
	consumed := p.deliverMessage(&Message{ID: ids["B"], Result: json.RawMessage(`{}`)}, dispatch)
	require.True(t, consumed)
	assert.True(t, gotB)
	consumed = p.deliverMessage(&Message{ID: ids["A"], Result: json.RawMessage(`{}`)}, dispatch)
	require.True(t, consumed)
	assert.True(t, gotA)
	assert.True(t, p.done())
}

// TestDeliverMessageMaximalPrefix covers the harder out-of-order case:
// two awaits are pending at once (both calls already dispatched), and a
// reply to the second arrives before the first.
func TestDeliverMessageMaximalPrefix(t *testing.T) {
	var order []string
	steps := []Step{
		Await(MatchCallID("first", func(state State, result json.RawMessage) (State, error) {
			order = append(order, "first")
			return state, nil
		})),
		Await(MatchCallID("second", func(state State, result json.RawMessage) (State, error) {
			order = append(order, "second")
			return state, nil
		})),
	}
	p := NewProtocol("t", false, 0, steps)
	p.state["first"] = int64(1)
	p.state["second"] = int64(2)

	consumed := p.deliverMessage(&Message{ID: 2, Result: json.RawMessage(`{}`)}, nil)
	require.True(t, consumed)
	assert.Equal(t, []string{"second"}, order)
	assert.False(t, p.done())

	consumed = p.deliverMessage(&Message{ID: 1, Result: json.RawMessage(`{}`)}, nil)
	require.True(t, consumed)
	assert.Equal(t, []string{"second", "first"}, order)
	assert.True(t, p.done())
}

// TestDeliverMessageNonMatchIsDiscarded covers property P6: an unrelated
// message neither crashes the Protocol nor advances it.
func TestDeliverMessageNonMatchIsDiscarded(t *testing.T) {
	steps := []Step{Await(MatchCallID("id", nil))}
	p := NewProtocol("t", false, 0, steps)
	p.state["id"] = int64(7)

	consumed := p.deliverMessage(&Message{Method: "Some.unrelatedEvent"}, nil)
	assert.False(t, consumed)
	assert.False(t, p.done())
}

// TestDeliverAtMostOnce covers property P1: the result callback fires
// exactly once even if fail/deliver race or are called twice.
func TestDeliverAtMostOnce(t *testing.T) {
	var calls int
	p := NewProtocol("t", false, 0, nil)
	p.resultFn = func(Result) { calls++ }

	p.fail(newError(KindTimeout))
	p.fail(newError(KindProtocolError))
	assert.Equal(t, 1, calls)
}

func TestProtocolErrorPropagatesRPCError(t *testing.T) {
	steps := []Step{Await(MatchCallID("id", nil))}
	p := NewProtocol("t", false, 0, steps)
	p.state["id"] = int64(1)
	var got Result
	p.resultFn = func(r Result) { got = r }

	p.deliverMessage(&Message{ID: 1, Error: &RPCError{Code: -32000, Message: "boom"}}, nil)
	require.Error(t, got.Err)
	kind, ok := KindOf(got.Err)
	require.True(t, ok)
	assert.Equal(t, KindProtocolError, kind)
}
