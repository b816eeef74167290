package devtools

import "encoding/json"

// MatchCallID builds an AwaitFunc that matches the solicited response to
// a call whose id was previously stashed in state[idKey] (by a preceding
// Call step). On match, parse is invoked with the response's raw Result
// to fold its contents into state; a non-nil RPCError on the message
// itself is surfaced as a protocol_error without calling parse.
func MatchCallID(idKey string, parse func(state State, result json.RawMessage) (State, error)) AwaitFunc {
	return func(state State, msg *Message) (AwaitOutcome, State, error) {
		if !msg.isResponse() {
			return NoMatch, state, nil
		}
		wantID, ok := state[idKey].(int64)
		if !ok || msg.ID != wantID {
			return NoMatch, state, nil
		}
		if msg.Error != nil {
			return 0, state, msg.Error
		}
		if parse == nil {
			return Match, state, nil
		}
		newState, err := parse(state, msg.Result)
		if err != nil {
			return 0, state, err
		}
		return Match, newState, nil
	}
}

// MatchEvent builds an AwaitFunc that matches an unsolicited event of the
// given method name. fn inspects the event's params and state and reports
// whether this particular occurrence satisfies the await (e.g. a
// frameStoppedLoading event whose frameId matches the one captured from
// navigate's response).
func MatchEvent(method string, fn func(state State, params json.RawMessage) (bool, State, error)) AwaitFunc {
	return func(state State, msg *Message) (AwaitOutcome, State, error) {
		if msg.isResponse() || msg.Method != method {
			return NoMatch, state, nil
		}
		matched, newState, err := fn(state, msg.Params)
		if err != nil {
			return 0, state, err
		}
		if !matched {
			return NoMatch, state, nil
		}
		return Match, newState, nil
	}
}
