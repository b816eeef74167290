// Package protocols assembles typed CDP domain parameters (page, target,
// network, security, inspector) into the two illustrative Protocols this
// repository ships: Print, the canonical request the whole engine exists
// to serve, and Ping, a trivial non-counting health check. Callers
// outside pkg/devtools — cmd/printpdf, tests, future domain clients —
// import this package; pkg/devtools itself never does, to avoid the
// import cycle a generic core would otherwise create with its own typed
// domain packages.
package protocols

import (
	"encoding/json"
	"time"

	"github.com/daabr/chrome-print/pkg/devtools"
	"github.com/daabr/chrome-print/pkg/devtools/protocols/page"
)

// PrintOptions configures one render-to-PDF request.
type PrintOptions struct {
	URL     string
	Timeout time.Duration

	Landscape       bool
	PrintBackground bool
	PaperWidth      float64
	PaperHeight     float64
	PageRanges      string
}

// PrintResult is the Print protocol's delivered output value: the raw PDF
// bytes, already base64-decoded.
type PrintResult struct {
	PDF []byte
}

// Print builds the canonical print Protocol: enable the Page domain,
// navigate, await the frame settling, call printToPDF, and decode its
// base64 payload into the output step's result. This is the protocol
// the whole engine exists to serve.
func Print(opts PrintOptions) *devtools.Protocol {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	steps := []devtools.Step{
		devtools.Call(func(state devtools.State, dispatch devtools.DispatchFunc) (devtools.State, error) {
			id, err := dispatch("Page.enable", nil)
			if err != nil {
				return state, err
			}
			state["enable.id"] = id
			return state, nil
		}),
		devtools.Await(devtools.MatchCallID("enable.id", nil)),

		devtools.Call(func(state devtools.State, dispatch devtools.DispatchFunc) (devtools.State, error) {
			params, err := json.Marshal(page.NewNavigate(opts.URL))
			if err != nil {
				return state, err
			}
			id, err := dispatch("Page.navigate", params)
			if err != nil {
				return state, err
			}
			state["navigate.id"] = id
			return state, nil
		}),
		devtools.Await(devtools.MatchCallID("navigate.id", func(state devtools.State, result json.RawMessage) (devtools.State, error) {
			var r page.NavigateResult
			if err := json.Unmarshal(result, &r); err != nil {
				return state, err
			}
			state["frameId"] = r.FrameID
			return state, nil
		})),

		devtools.Await(devtools.MatchEvent(page.EventFrameStoppedLoading, func(state devtools.State, params json.RawMessage) (bool, devtools.State, error) {
			var ev page.FrameStoppedLoading
			if err := json.Unmarshal(params, &ev); err != nil {
				return false, state, err
			}
			// Browsers routinely fire frameStoppedLoading before acking
			// the navigate call that caused it, so frameId may not be
			// known yet. Filter by it when we have it; a Session runs one
			// target at a time, so any frameStoppedLoading seen before
			// that is almost certainly the one we're waiting for.
			if frameID, known := state["frameId"].(string); known && frameID != "" {
				return ev.FrameID == frameID, state, nil
			}
			return true, state, nil
		})),

		devtools.Call(func(state devtools.State, dispatch devtools.DispatchFunc) (devtools.State, error) {
			cmd := page.NewPrintToPDF().
				SetLandscape(opts.Landscape).
				SetPrintBackground(opts.PrintBackground).
				SetPageRanges(opts.PageRanges)
			if opts.PaperWidth > 0 {
				cmd.SetPaperWidth(opts.PaperWidth)
			}
			if opts.PaperHeight > 0 {
				cmd.SetPaperHeight(opts.PaperHeight)
			}
			params, err := json.Marshal(cmd)
			if err != nil {
				return state, err
			}
			id, err := dispatch("Page.printToPDF", params)
			if err != nil {
				return state, err
			}
			state["printToPDF.id"] = id
			return state, nil
		}),
		devtools.Await(devtools.MatchCallID("printToPDF.id", func(state devtools.State, result json.RawMessage) (devtools.State, error) {
			var r page.PrintToPDFResult
			if err := json.Unmarshal(result, &r); err != nil {
				return state, err
			}
			state["pdfBase64"] = r.Data
			return state, nil
		})),

		devtools.Output(func(state devtools.State) (interface{}, error) {
			decoded, err := decodeBase64(state["pdfBase64"].(string))
			if err != nil {
				return nil, err
			}
			return PrintResult{PDF: decoded}, nil
		}),
	}

	return devtools.NewProtocol("print", true, timeout, steps)
}
