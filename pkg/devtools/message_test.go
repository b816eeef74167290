package devtools

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMessageRoundTripsThroughJSON(t *testing.T) {
	cases := []Message{
		{ID: 1, Method: "Page.navigate", Params: json.RawMessage(`{"url":"about:blank"}`)},
		{ID: 1, Result: json.RawMessage(`{"frameId":"f1"}`)},
		{ID: 2, Error: &RPCError{Code: -32000, Message: "boom"}},
		{SessionID: "sess-1", Method: "Page.frameStoppedLoading", Params: json.RawMessage(`{"frameId":"f1"}`)},
	}

	for _, want := range cases {
		b, err := json.Marshal(want)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var got Message
		if err := json.Unmarshal(b, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Message round-trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestMessageIsResponse(t *testing.T) {
	cases := []struct {
		name string
		m    Message
		want bool
	}{
		{"response with result", Message{ID: 1, Result: json.RawMessage(`{}`)}, true},
		{"response with error", Message{ID: 1, Error: &RPCError{Message: "x"}}, true},
		{"event", Message{Method: "Page.navigate"}, false},
	}
	for _, tc := range cases {
		if got := tc.m.isResponse(); got != tc.want {
			t.Errorf("%s: isResponse() = %v, want %v", tc.name, got, tc.want)
		}
	}
}
