package config

import (
	"sync/atomic"
	"time"
)

// Snapshot is one loaded revision of the config file. Generation 0 is the
// config the process started with; each reload adds one.
type Snapshot struct {
	Config     *Config
	Generation uint64
	LoadedAt   time.Time
}

// Holder shares the live config between serve and its reload sources
// (file watcher and SIGHUP). Readers never block writers.
type Holder struct {
	path    string
	current atomic.Pointer[Snapshot]
	now     func() time.Time
}

// NewHolder starts a Holder at generation 0 with cfg, read from path.
func NewHolder(cfg *Config, path string) *Holder {
	h := &Holder{path: path, now: time.Now}
	h.current.Store(&Snapshot{Config: cfg, LoadedAt: h.now()})

	return h
}

// Config returns the live config.
func (h *Holder) Config() *Config {
	return h.current.Load().Config
}

// Snapshot returns the live config with its generation.
func (h *Holder) Snapshot() Snapshot {
	return *h.current.Load()
}

// Path is the file the config is reloaded from.
func (h *Holder) Path() string {
	return h.path
}

// Update publishes cfg as the next generation and returns that generation.
func (h *Holder) Update(cfg *Config) uint64 {
	for {
		prev := h.current.Load()
		next := &Snapshot{Config: cfg, Generation: prev.Generation + 1, LoadedAt: h.now()}

		if h.current.CompareAndSwap(prev, next) {
			return next.Generation
		}
	}
}
