// Package inspector contains the single CDP Inspector domain type this
// engine needs: the crash event Session logs remediation hints for.
package inspector

// TargetCrashed is the CDP event `Inspector.targetCrashed`, fired when
// the renderer process backing a target has crashed.
//
// https://chromedevtools.github.io/devtools-protocol/tot/Inspector/#event-targetCrashed
type TargetCrashed struct{}

// EventTargetCrashed is the CDP event method name.
const EventTargetCrashed = "Inspector.targetCrashed"
