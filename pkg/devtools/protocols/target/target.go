// Package target contains CDP Target domain parameter and result types
// used by Session bootstrap and teardown. See pkg/devtools/protocols/page
// for why these carry no transport methods of their own.
package target

// CreateBrowserContext contains the parameters for the CDP command
// `Target.createBrowserContext`.
//
// https://chromedevtools.github.io/devtools-protocol/tot/Target/#method-createBrowserContext
type CreateBrowserContext struct {
	DisposeOnDetach bool `json:"disposeOnDetach,omitempty"`
}

// CreateBrowserContextResult contains the browser's response.
type CreateBrowserContextResult struct {
	BrowserContextID string `json:"browserContextId"`
}

// CreateTarget contains the parameters for the CDP command
// `Target.createTarget`.
//
// https://chromedevtools.github.io/devtools-protocol/tot/Target/#method-createTarget
type CreateTarget struct {
	URL              string `json:"url"`
	BrowserContextID string `json:"browserContextId,omitempty"`
}

// NewCreateTarget constructs a CreateTarget command with its required
// parameter.
func NewCreateTarget(url string) *CreateTarget { return &CreateTarget{URL: url} }

// SetBrowserContextID sets the optional `browserContextId` parameter.
func (t *CreateTarget) SetBrowserContextID(v string) *CreateTarget {
	t.BrowserContextID = v
	return t
}

// CreateTargetResult contains the browser's response.
type CreateTargetResult struct {
	TargetID string `json:"targetId"`
}

// AttachToTarget contains the parameters for the CDP command
// `Target.attachToTarget`.
//
// https://chromedevtools.github.io/devtools-protocol/tot/Target/#method-attachToTarget
type AttachToTarget struct {
	TargetID string `json:"targetId"`
	Flatten  bool   `json:"flatten,omitempty"`
}

// NewAttachToTarget constructs an AttachToTarget command with its
// required parameter, always requesting flattened sessionId-tagged
// routing (the only mode this engine's Connection understands).
func NewAttachToTarget(targetID string) *AttachToTarget {
	return &AttachToTarget{TargetID: targetID, Flatten: true}
}

// AttachToTargetResult contains the browser's response.
type AttachToTargetResult struct {
	SessionID string `json:"sessionId"`
}

// DetachFromTarget contains the parameters for the CDP command
// `Target.detachFromTarget`.
//
// https://chromedevtools.github.io/devtools-protocol/tot/Target/#method-detachFromTarget
type DetachFromTarget struct {
	SessionID string `json:"sessionId,omitempty"`
}

// CloseTarget contains the parameters for the CDP command
// `Target.closeTarget`.
//
// https://chromedevtools.github.io/devtools-protocol/tot/Target/#method-closeTarget
type CloseTarget struct {
	TargetID string `json:"targetId"`
}

// DisposeBrowserContext contains the parameters for the CDP command
// `Target.disposeBrowserContext`.
//
// https://chromedevtools.github.io/devtools-protocol/tot/Target/#method-disposeBrowserContext
type DisposeBrowserContext struct {
	BrowserContextID string `json:"browserContextId"`
}

// GetTargets contains the parameters for the CDP command
// `Target.getTargets`, used as a trivial health-check protocol since it
// has no side effects.
//
// https://chromedevtools.github.io/devtools-protocol/tot/Target/#method-getTargets
type GetTargets struct{}

// GetTargetsResult contains the browser's response.
type GetTargetsResult struct {
	TargetInfos []TargetInfo `json:"targetInfos"`
}

// TargetInfo describes one attached or detached browser target.
type TargetInfo struct {
	TargetID string `json:"targetId"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Attached bool   `json:"attached"`
}
