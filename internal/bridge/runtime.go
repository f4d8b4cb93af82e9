// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Crosscall Contributors

// Package bridge exposes the host-facing entry points of the invocation
// router: plugin registration, surface propagation, and command execution.
// A Runtime is constructed explicitly by the host's setup sequence; there
// is no process-wide singleton.
package bridge

import (
	"log/slog"
	"sync"

	"github.com/samber/oops"

	"github.com/Choochmeque/crosscall/internal/invoke"
)

// ResultFunc receives the terminal response for one invocation. success is
// computed from the response tag; an absent payload is normalized to the
// literal string "null".
type ResultFunc func(invocationID int32, success bool, payload string)

// ChannelDataFunc receives out-of-band channel data.
type ChannelDataFunc func(channelID uint64, payload string)

// Runtime owns the registry, the dispatcher, and the channel table for one
// host process.
type Runtime struct {
	registry   *invoke.Registry
	dispatcher *invoke.Dispatcher

	// owner is the opaque controller owning the rendering surface. The
	// router only holds the reference; it never manages the view
	// hierarchy.
	ownerMu sync.Mutex
	owner   any

	channels *channelTable
}

// Option configures a Runtime during construction.
type Option func(*options)

type options struct {
	queueDepth int
}

// WithQueueDepth sets the dispatcher's serial queue capacity.
func WithQueueDepth(depth int) Option {
	return func(o *options) {
		o.queueDepth = depth
	}
}

// NewRuntime creates a runtime with an empty registry and a running
// dispatcher.
func NewRuntime(opts ...Option) (*Runtime, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	registry := invoke.NewRegistry()
	var dopts []invoke.DispatcherOption
	if o.queueDepth > 0 {
		dopts = append(dopts, invoke.WithQueueDepth(o.queueDepth))
	}
	dispatcher, err := invoke.NewDispatcher(registry, dopts...)
	if err != nil {
		return nil, oops.Hint("dispatcher construction failed").Wrap(err)
	}

	return &Runtime{
		registry:   registry,
		dispatcher: dispatcher,
		channels:   newChannelTable(),
	}, nil
}

// Registry returns the runtime's plugin registry.
func (r *Runtime) Registry() *invoke.Registry {
	return r.registry
}

// Close stops the dispatcher. Queued invocations are rejected.
func (r *Runtime) Close() {
	r.dispatcher.Close()
}

// RegisterPlugin stores a plugin under name, applying config before the
// plugin becomes dispatchable. A non-nil surface is attached immediately,
// marking the plugin loaded.
func (r *Runtime) RegisterPlugin(name string, plugin invoke.Plugin, config string, surface invoke.Surface) error {
	if err := r.registry.Register(name, plugin, config); err != nil {
		return oops.With("plugin", name).Wrap(err)
	}
	if surface != nil {
		r.registry.AttachSurface(surface)
	}
	slog.Info("plugin registered", "plugin", name)
	return nil
}

// SurfaceCreated records the surface's owning controller and forwards the
// surface to every registered, not-yet-attached plugin.
func (r *Runtime) SurfaceCreated(surface invoke.Surface, owner any) {
	r.ownerMu.Lock()
	r.owner = owner
	r.ownerMu.Unlock()

	r.registry.AttachSurface(surface)
}

// SurfaceOwner returns the controller recorded by the last SurfaceCreated.
func (r *Runtime) SurfaceOwner() any {
	r.ownerMu.Lock()
	defer r.ownerMu.Unlock()
	return r.owner
}

// RunCommand dispatches command on the named plugin. The terminal response
// arrives on onResult exactly once; channel data arrives on onChannelData,
// or on channels registered with RegisterChannel when onChannelData is
// nil. onResult receives success=true only when the success tag was used;
// an absent payload is delivered as "null".
func (r *Runtime) RunCommand(invocationID int32, plugin, command, data string, onResult ResultFunc, onChannelData ChannelDataFunc) {
	respond := func(tag invoke.ResponseTag, payload *string) {
		normalized := "null"
		if payload != nil {
			normalized = *payload
		}
		if onResult != nil {
			onResult(invocationID, tag == invoke.TagSuccess, normalized)
		}
	}

	channel := onChannelData
	if channel == nil {
		channel = r.channels.deliver
	}

	inv := invoke.NewInvocation(plugin, command, data, respond, invoke.ChannelFunc(channel))
	r.dispatcher.Dispatch(inv)
}
