// Package network contains the single CDP Network domain type this
// engine needs: the offline-emulation call issued during Session
// bootstrap when Config.Offline is set.
package network

// EmulateNetworkConditions contains the parameters for the CDP command
// `Network.emulateNetworkConditions`.
//
// https://chromedevtools.github.io/devtools-protocol/tot/Network/#method-emulateNetworkConditions
type EmulateNetworkConditions struct {
	Offline            bool    `json:"offline"`
	Latency            float64 `json:"latency"`
	DownloadThroughput float64 `json:"downloadThroughput"`
	UploadThroughput   float64 `json:"uploadThroughput"`
}

// NewOffline constructs the parameters for disabling network access
// entirely, used by Config.Offline's bootstrap step.
func NewOffline() *EmulateNetworkConditions {
	return &EmulateNetworkConditions{
		Offline:            true,
		Latency:            0,
		DownloadThroughput:  -1,
		UploadThroughput:    -1,
	}
}
