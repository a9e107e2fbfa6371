package registry

import (
	"net/http"
	"sync"
)

// Engine performs the actual network I/O for one group. Engines own their
// connection pool and are shared by every proxy bound to the group; the
// pool is thread-safe, so no external locking is needed for dispatch.
type Engine struct {
	kind      EngineKind
	client    *http.Client
	closeOnce sync.Once
}

func newEngine(cfg *GroupConfig) *Engine {
	transport := cfg.Transport
	if transport == nil {
		// Each engine gets its own pool so that releasing one group's
		// engine never drains connections belonging to another.
		transport = http.DefaultTransport.(*http.Transport).Clone()
	}
	return &Engine{
		kind: cfg.Engine,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
	}
}

// Kind reports the engine's calling convention.
func (e *Engine) Kind() EngineKind {
	return e.kind
}

// Do dispatches a single request through the engine's client.
func (e *Engine) Do(req *http.Request) (*http.Response, error) {
	return e.client.Do(req)
}

// Close releases the engine's connection pool. Releasing twice is a no-op.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.client.CloseIdleConnections()
	})
}
