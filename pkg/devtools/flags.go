package devtools

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// baseBrowserFlags is largely based on the results of other related
// projects:
//
// • https://source.chromium.org/chromium/chromium/src/+/master:chrome/test/chromedriver/chrome_launcher.cc
// • https://github.com/puppeteer/puppeteer/blob/main/src/node/Launcher.ts
// • https://github.com/chromedp/chromedp/blob/master/allocate.go
// • https://github.com/GoogleChrome/chrome-launcher/blob/master/src/flags.ts
var baseBrowserFlags = map[string]interface{}{
	"disable-background-networking":                      true,
	"disable-background-timer-throttling":                 true,
	"disable-backgrounding-occluded-windows":              true,
	"disable-breakpad":                                    true,
	"disable-client-side-phishing-detection":              true,
	"disable-component-extensions-with-background-pages":  true,
	"disable-default-apps":                                true,
	"disable-dev-shm-usage":                               true,
	"disable-extensions":                                  true,
	"disable-features":                                    "Translate",
	"disable-hang-monitor":                                true,
	"disable-ipc-flooding-protection":                     true,
	"disable-popup-blocking":                              true,
	"disable-prompt-on-repost":                             true,
	"disable-renderer-backgrounding":                      true,
	"disable-sync":                                        true,
	"enable-automation":                                   true,
	"enable-blink-features":                                "IdleDetection",
	"enable-features":                                      "NetworkService,NetworkServiceInProcess",
	"force-color-profile":                                  "srgb",
	"headless":                                             true,
	"metrics-recording-only":                               true,
	"mute-audio":                                            true,
	"no-default-browser-check":                             true,
	"no-first-run":                                         true,
	"password-store":                                       "basic",
	"use-mock-keychain":                                    true,
}

// defaultBrowserFlags returns a fresh copy of the base flag set, with
// --no-sandbox added when the caller asked for it or the process is
// running as root (the sandbox cannot be set up as root on most Linux
// distributions).
func defaultBrowserFlags(noSandbox bool) map[string]interface{} {
	flags := make(map[string]interface{}, len(baseBrowserFlags)+2)
	for k, v := range baseBrowserFlags {
		flags[k] = v
	}
	if noSandbox || os.Getuid() == 0 {
		flags["no-sandbox"] = true
	}
	return flags
}

// splitFlag turns a caller-supplied "name=value" or bare "name" extra
// Chrome argument into a (key, value) pair for the flag map.
func splitFlag(raw string) (string, interface{}) {
	raw = strings.TrimPrefix(raw, "--")
	if i := strings.IndexByte(raw, '='); i >= 0 {
		return raw[:i], raw[i+1:]
	}
	return raw, true
}

// launchArgs builds the browser command-line, including the pipe-based
// remote debugging flag (never a TCP port: this engine speaks CDP over
// a pipe, not a WebSocket), the per-Connection user data directory, and any
// caller-supplied extra flags, then appends "about:blank" as the initial
// document.
func launchArgs(cfg Config, userDataDir string) []string {
	flags := defaultBrowserFlags(cfg.NoSandbox)
	flags["remote-debugging-pipe"] = true
	flags["user-data-dir"] = userDataDir
	for _, extra := range cfg.ChromeArgs {
		k, v := splitFlag(extra)
		flags[k] = v
	}

	keys := make([]string, 0, len(flags))
	for k := range flags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		flag := "--" + k
		switch v := flags[k].(type) {
		case bool:
			if v {
				args = append(args, flag)
			}
		default:
			args = append(args, fmt.Sprintf("%s=%v", flag, v))
		}
	}
	return append(args, "about:blank")
}
