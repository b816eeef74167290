package devtools

import (
	"runtime"
	"time"

	"github.com/mstoykov/envconfig"
	"github.com/pkg/errors"
)

// Config carries every option the core consumes. It is resolved once by
// an external collaborator
// (e.g. the CLI facade, via LoadConfig) and passed by value into
// NewSessionPool/NewSupervisor. Apart from OutputRootEnv, which
// OpenConnection reads to place per-Connection user data directories, the
// core never reads the environment.
type Config struct {
	// SessionPoolSize is the number of concurrent Sessions. Zero means
	// "number of hardware threads".
	SessionPoolSize int `envconfig:"SESSION_POOL_SIZE"`
	// MaxSessionUses is the number of counting Protocols a Session runs
	// before it is recycled.
	MaxSessionUses int `envconfig:"MAX_SESSION_USES"`
	// OnDemand, if true, keeps no idle Sessions: a checkout boots a fresh
	// browser process and a checkin tears it down.
	OnDemand bool `envconfig:"ON_DEMAND"`
	// Offline, if true, makes the bootstrap protocol emit
	// Network.emulateNetworkConditions(offline=true).
	Offline bool `envconfig:"OFFLINE"`
	// NoSandbox adds --no-sandbox to the browser launch flags.
	NoSandbox bool `envconfig:"NO_SANDBOX"`
	// DiscardStderr routes the browser's STDERR to /dev/null instead of
	// the configured logging sink.
	DiscardStderr bool `envconfig:"DISCARD_STDERR"`
	// ChromeArgs are extra launch flags, e.g. "window-size=1920,1080" or
	// "disable-gpu".
	ChromeArgs []string `envconfig:"CHROME_ARGS"`
	// ChromeExecutable overrides auto-discovery of the browser binary.
	ChromeExecutable string `envconfig:"CHROME_EXECUTABLE"`
	// IgnoreCertificateErrors makes the bootstrap protocol emit
	// Security.setIgnoreCertificateErrors.
	IgnoreCertificateErrors bool `envconfig:"IGNORE_CERTIFICATE_ERRORS"`
	// InitTimeout bounds Session bootstrap.
	InitTimeout time.Duration `envconfig:"INIT_TIMEOUT" default:"1m"`
	// Timeout is the default per-Protocol wall-clock budget, used by
	// callers that don't set Protocol.Timeout explicitly.
	Timeout time.Duration `envconfig:"TIMEOUT" default:"30s"`
}

// DefaultConfig returns the engine's zero-environment defaults.
func DefaultConfig() Config {
	return Config{
		SessionPoolSize: runtime.NumCPU(),
		MaxSessionUses:  1000,
		InitTimeout:     time.Minute,
		Timeout:         30 * time.Second,
	}
}

// LoadConfig resolves a Config by layering environment variables (with the
// given prefix, e.g. "CHROME_PRINT" for CHROME_PRINT_SESSION_POOL_SIZE)
// over DefaultConfig. Configuration loading is an external collaborator's
// concern — the core only ever sees the resulting struct.
func LoadConfig(prefix string) (Config, error) {
	cfg := DefaultConfig()
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "load configuration")
	}
	if cfg.SessionPoolSize <= 0 {
		cfg.SessionPoolSize = runtime.NumCPU()
	}
	return cfg, nil
}
