package model

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Loader produces a bundle. It is called at most once per Registry.
type Loader func(ctx context.Context) (*Bundle, error)

// SourceLoader returns a Loader that reads a bundle from src.
func SourceLoader(src Source, opts Options) Loader {
	return func(ctx context.Context) (*Bundle, error) {
		return Load(ctx, src, opts)
	}
}

// Registry hands out one shared bundle per process. The first call to Bundle loads it;
// concurrent callers wait for that load and every caller observes the same outcome,
// including a failure. Nothing is reloaded afterwards. The load is not tied to the
// first caller's cancellation; downloads are bounded by the fetch timeouts instead.
type Registry struct {
	load  Loader
	once  sync.Once
	ready atomic.Bool
	loads atomic.Int64

	bundle *Bundle
	err    error
}

// NewRegistry returns a registry that loads lazily through load.
func NewRegistry(load Loader) *Registry {
	return &Registry{load: load}
}

// Static returns a registry that already holds b.
func Static(b *Bundle) *Registry {
	r := &Registry{}
	r.once.Do(func() {
		r.bundle = b
		r.ready.Store(true)
	})
	return r
}

// Bundle returns the shared bundle, loading it on first use. Errors are *LoadError.
func (r *Registry) Bundle(ctx context.Context) (*Bundle, error) {
	r.once.Do(func() {
		r.loads.Add(1)
		bundle, err := r.load(context.WithoutCancel(ctx))
		if err != nil {
			var loadErr *LoadError
			if !errors.As(err, &loadErr) {
				err = &LoadError{Artifact: "bundle", Err: err}
			}
			slog.Error("Model bundle unavailable", "error", err)
			r.err = err
		} else {
			r.bundle = bundle
		}
		r.ready.Store(true)
	})
	return r.bundle, r.err
}

// Loaded reports the bundle without triggering or waiting for a load.
func (r *Registry) Loaded() (*Bundle, bool) {
	if !r.ready.Load() || r.err != nil {
		return nil, false
	}
	return r.bundle, true
}

// Loads returns how many times the loader ran; it never exceeds one.
func (r *Registry) Loads() int64 { return r.loads.Load() }
