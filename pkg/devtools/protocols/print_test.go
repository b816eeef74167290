package protocols

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/daabr/chrome-print/pkg/devtools"
)

// fakeDispatch stands in for a Session's DispatchFunc: it assigns
// sequential call ids and records what was sent, without any real
// Connection or browser.
type fakeDispatch struct {
	nextID int64
	calls  map[string]int64
}

func newFakeDispatch() *fakeDispatch {
	return &fakeDispatch{calls: make(map[string]int64)}
}

func (f *fakeDispatch) dispatch(method string, _ json.RawMessage) (int64, error) {
	f.nextID++
	f.calls[method] = f.nextID
	return f.nextID, nil
}

func response(id int64, result interface{}) *devtools.Message {
	raw, err := json.Marshal(result)
	if err != nil {
		panic(err)
	}
	return &devtools.Message{ID: id, Result: raw}
}

func event(method string, params interface{}) *devtools.Message {
	raw, err := json.Marshal(params)
	if err != nil {
		panic(err)
	}
	return &devtools.Message{Method: method, Params: raw}
}

// TestPrintHappyPathScrambledOrder drives the canonical print Protocol
// through a reply order that does not mirror the order its calls were
// dispatched in: the frameStoppedLoading event for the navigated frame
// arrives before Page.navigate's own reply does, which is normal browser
// behavior (the event and the command ack race each other). The
// Protocol's maximal-prefix-of-awaits matching must still land on exactly
// one decoded-PDF result.
func TestPrintHappyPathScrambledOrder(t *testing.T) {
	proto := Print(PrintOptions{URL: "https://example.com/report"})

	var result devtools.Result
	var delivered int
	proto.OnResult(func(r devtools.Result) {
		delivered++
		result = r
	})

	fd := newFakeDispatch()
	proto.Advance(fd.dispatch)

	if got, want := len(fd.calls), 1; got != want {
		t.Fatalf("calls dispatched before any reply = %d, want %d (only Page.enable)", got, want)
	}
	enableID, ok := fd.calls["Page.enable"]
	if !ok {
		t.Fatal("Page.enable was not dispatched")
	}

	proto.Deliver(response(enableID, struct{}{}), fd.dispatch)

	navigateID, ok := fd.calls["Page.navigate"]
	if !ok {
		t.Fatal("Page.navigate was not dispatched after Page.enable's reply")
	}

	// Out of order: the frame-stopped-loading event lands before
	// navigate's reply, before frameId is even known.
	consumed := proto.Deliver(event("Page.frameStoppedLoading", struct {
		FrameID string `json:"frameId"`
	}{FrameID: "frame-1"}), fd.dispatch)
	if !consumed {
		t.Fatal("expected the frameStoppedLoading event to be consumed even though frameId wasn't known yet")
	}

	if _, dispatched := fd.calls["Page.printToPDF"]; dispatched {
		t.Fatal("Page.printToPDF dispatched before its own prerequisite (navigate's reply) arrived")
	}

	proto.Deliver(response(navigateID, struct {
		FrameID string `json:"frameId"`
	}{FrameID: "frame-1"}), fd.dispatch)

	printID, ok := fd.calls["Page.printToPDF"]
	if !ok {
		t.Fatal("Page.printToPDF was not dispatched after frameStoppedLoading and navigate's reply both landed")
	}

	pdfBytes := []byte("%PDF-1.7 fake content")
	proto.Deliver(response(printID, struct {
		Data string `json:"data"`
	}{Data: base64.StdEncoding.EncodeToString(pdfBytes)}), fd.dispatch)

	if delivered != 1 {
		t.Fatalf("result delivered %d times, want exactly 1", delivered)
	}
	if result.Err != nil {
		t.Fatalf("unexpected error result: %v", result.Err)
	}
	pr, ok := result.Value.(PrintResult)
	if !ok {
		t.Fatalf("result value is %T, want PrintResult", result.Value)
	}
	if string(pr.PDF) != string(pdfBytes) {
		t.Fatalf("decoded PDF = %q, want %q", pr.PDF, pdfBytes)
	}
}

// TestPrintNonMatchingReplyIsDiscarded covers a reply for a call that was
// never dispatched arriving early: the Protocol must drop it without
// disturbing its own pending await.
func TestPrintNonMatchingReplyIsDiscarded(t *testing.T) {
	proto := Print(PrintOptions{URL: "https://example.com/report"})

	var delivered bool
	proto.OnResult(func(devtools.Result) { delivered = true })

	fd := newFakeDispatch()
	proto.Advance(fd.dispatch)

	consumed := proto.Deliver(response(999, struct{}{}), fd.dispatch)
	if consumed {
		t.Fatal("expected a reply to an id that was never dispatched to be discarded, not consumed")
	}
	if delivered {
		t.Fatal("result must not be delivered from a discarded, non-matching reply")
	}
}
