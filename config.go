package thpool

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// maxNamePrefixLen bounds the worker-name prefix. Worker names are
// "<prefix>-<hex id>" and must stay within the 15 visible characters an
// OS thread name can carry: 8 are reserved for the hex id, 1 for the
// hyphen, leaving 6 for the prefix.
const maxNamePrefixLen = 6

// Config contains all configuration options for the pool.
//
// The data fields can be loaded from a YAML file via LoadConfig; the
// capability fields (hooks, passport, logger) are wired in code.
type Config struct {
	// NamePrefix names the pool's workers "<prefix>-<hex id>".
	// At most 6 characters; longer prefixes are truncated.
	NamePrefix string `yaml:"name_prefix"`

	// NumThreads is the number of workers. Must be positive; New fails
	// otherwise.
	NumThreads int `yaml:"num_threads"`

	// QueueMax caps the number of queued jobs. Submissions beyond the
	// cap block until a worker drains the queue. Zero or negative means
	// unbounded.
	QueueMax int `yaml:"queue_max"`

	// PinOSThreads locks every worker goroutine to its own OS thread
	// and names that thread (best-effort, Linux only). Without pinning
	// the display name exists only on the worker handle.
	PinOSThreads bool `yaml:"pin_os_threads"`

	// StartHook is invoked once by every worker before it starts
	// consuming jobs, with the shared hook argument and the worker
	// handle. Useful for per-worker setup such as opening a database
	// connection into the context slot.
	StartHook func(arg any, w *Worker) `yaml:"-"`

	// EndHook is invoked once by every worker after its loop exits.
	EndHook func(w *Worker) `yaml:"-"`

	// HookArg is shared by every StartHook invocation.
	HookArg any `yaml:"-"`

	// HookArgDestructor, when set, enables reference counting of
	// HookArg: one reference per worker plus one held by New until
	// worker creation commits. The destructor runs exactly once, when
	// the last reference is released — at the latest during Destroy.
	HookArgDestructor func(arg any) `yaml:"-"`

	// PanicHandler is called when a task or hook panics. If nil, the
	// panic is logged through the pool's logger. The worker survives
	// either way.
	PanicHandler func(recovered any) `yaml:"-"`

	// Passport optionally supplies a caller-owned passport. It must be
	// unbound and must outlive the pool. When nil the pool allocates
	// its own.
	Passport *Passport `yaml:"-"`

	// Logger is the leveled sink the pool logs through. Defaults to
	// NewDefaultLogger.
	Logger Logger `yaml:"-"`
}

// DefaultConfig returns the baseline configuration. NumThreads is left
// at zero on purpose: the pool size is a deliberate choice and New
// rejects a config that does not make it.
func DefaultConfig() Config {
	return Config{
		NamePrefix: "thpool",
		NumThreads: 0,
		QueueMax:   0,
	}
}

// validate checks the configuration and returns an error if invalid.
func (c *Config) validate() error {
	if c.NumThreads <= 0 {
		return errInvalidConfig("NumThreads must be > 0")
	}
	if c.Passport != nil && c.Passport.loadState() != StateUnbind {
		// Caught again by the binding CAS; rejecting here gives the
		// caller a config error instead of a rebind log.
		return ErrRebind
	}
	return nil
}

// normalize fills in the derived defaults after options are applied.
func (c *Config) normalize() {
	if len(c.NamePrefix) > maxNamePrefixLen {
		c.NamePrefix = c.NamePrefix[:maxNamePrefixLen]
	}
	if c.QueueMax < 0 {
		c.QueueMax = 0
	}
	if c.Logger == nil {
		c.Logger = NewDefaultLogger()
	}
}

// LoadConfig loads the data fields of a Config from a YAML file on top
// of DefaultConfig. Capability fields are left nil and are wired with
// options:
//
//	cfg, err := thpool.LoadConfig("pool.yaml")
//	if err != nil {
//	    return err
//	}
//	pool, err := thpool.New(
//	    thpool.WithConfig(cfg),
//	    thpool.WithStartHook(openConn),
//	)
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("thpool: read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("thpool: unmarshal config %s: %w", path, err)
	}
	return cfg, nil
}

// Option configures a Pool.
type Option func(*Config)

// WithConfig replaces the whole config, typically one produced by
// LoadConfig. Options applied after it still take effect.
func WithConfig(cfg Config) Option {
	return func(c *Config) {
		*c = cfg
	}
}

// WithNamePrefix sets the worker-name prefix (at most 6 characters).
func WithNamePrefix(prefix string) Option {
	return func(c *Config) {
		c.NamePrefix = prefix
	}
}

// WithNumThreads sets the number of workers.
func WithNumThreads(n int) Option {
	return func(c *Config) {
		c.NumThreads = n
	}
}

// WithQueueMax caps the job queue. Zero or negative means unbounded.
func WithQueueMax(n int) Option {
	return func(c *Config) {
		c.QueueMax = n
	}
}

// WithStartHook sets the per-worker start hook.
func WithStartHook(hook func(arg any, w *Worker)) Option {
	return func(c *Config) {
		c.StartHook = hook
	}
}

// WithEndHook sets the per-worker end hook.
func WithEndHook(hook func(w *Worker)) Option {
	return func(c *Config) {
		c.EndHook = hook
	}
}

// WithHookArg sets the shared hook argument and, optionally, its
// destructor. A nil destructor leaves the argument's lifetime entirely
// to the caller.
func WithHookArg(arg any, destructor func(arg any)) Option {
	return func(c *Config) {
		c.HookArg = arg
		c.HookArgDestructor = destructor
	}
}

// WithPanicHandler sets the handler invoked when a task or hook panics.
func WithPanicHandler(h func(recovered any)) Option {
	return func(c *Config) {
		c.PanicHandler = h
	}
}

// WithPassport supplies a caller-owned passport. See Passport for the
// lifetime contract.
func WithPassport(pp *Passport) Option {
	return func(c *Config) {
		c.Passport = pp
	}
}

// WithPinOSThreads locks workers to OS threads and names them.
func WithPinOSThreads(pin bool) Option {
	return func(c *Config) {
		c.PinOSThreads = pin
	}
}

// WithLogger sets the pool's logging sink.
func WithLogger(lg Logger) Option {
	return func(c *Config) {
		c.Logger = lg
	}
}
