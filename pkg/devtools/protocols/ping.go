package protocols

import (
	"encoding/json"
	"time"

	"github.com/daabr/chrome-print/pkg/devtools"
	"github.com/daabr/chrome-print/pkg/devtools/protocols/target"
)

// Ping builds a trivial, non-counting health-check Protocol:
// Target.getTargets has no side effects and doesn't consume any of a
// Session's max_session_uses budget (Protocol.Counts is false). Neither
// SessionPool nor Supervisor.Warm runs it. Its output is the number of
// targets the browser currently reports.
func Ping() *devtools.Protocol {
	steps := []devtools.Step{
		devtools.Call(func(state devtools.State, dispatch devtools.DispatchFunc) (devtools.State, error) {
			params, err := json.Marshal(target.GetTargets{})
			if err != nil {
				return state, err
			}
			id, err := dispatch("Target.getTargets", params)
			if err != nil {
				return state, err
			}
			state["getTargets.id"] = id
			return state, nil
		}),
		devtools.Await(devtools.MatchCallID("getTargets.id", func(state devtools.State, result json.RawMessage) (devtools.State, error) {
			var r target.GetTargetsResult
			if err := json.Unmarshal(result, &r); err != nil {
				return state, err
			}
			state["targetCount"] = len(r.TargetInfos)
			return state, nil
		})),
		devtools.Output(func(state devtools.State) (interface{}, error) {
			return state["targetCount"].(int), nil
		}),
	}
	return devtools.NewProtocol("ping", false, 5*time.Second, steps)
}
