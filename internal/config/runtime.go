package config

import "sync/atomic"

// Runtime holds the live configuration. Readers call Get per operation; the
// watcher calls Store after a successful reload.
type Runtime struct {
	ptr atomic.Pointer[Config]
}

var _ RuntimeConfig = (*Runtime)(nil)

// NewRuntime creates a Runtime holding initial.
func NewRuntime(initial *Config) *Runtime {
	r := &Runtime{}
	r.ptr.Store(initial)
	return r
}

// Get returns the current configuration.
func (r *Runtime) Get() *Config {
	return r.ptr.Load()
}

// Store swaps in cfg. In-flight readers keep the config they already loaded.
func (r *Runtime) Store(cfg *Config) {
	r.ptr.Store(cfg)
}
