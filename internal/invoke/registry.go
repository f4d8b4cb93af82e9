// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Crosscall Contributors

package invoke

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/samber/oops"
)

// Handle pairs a registered plugin with its command directory and surface
// state. One handle exists per plugin name for the process lifetime; there
// is no unregistration.
type Handle struct {
	Name     string
	plugin   Plugin
	commands *commandSet
	attached bool
}

// Resolve looks up the binding for a command on this plugin.
func (h *Handle) Resolve(command string) (Binding, bool) {
	return h.commands.Resolve(command)
}

// Directory returns the plugin's command directory lines.
func (h *Handle) Directory() []string {
	return h.commands.Directory()
}

// Registry maps plugin names to handles. It is safe for concurrent use;
// registration normally happens on the host's setup sequence before any
// invocation, but the lock makes that a guarantee rather than an
// assumption.
type Registry struct {
	mu         sync.RWMutex
	plugins    map[string]*Handle
	surface    Surface
	hasSurface bool
}

// NewRegistry creates an empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		plugins: make(map[string]*Handle),
	}
}

// Register stores a handle for name, applying config before the plugin
// becomes dispatchable. A duplicate name overwrites the previous handle
// with a warning (last write wins). If a surface already exists
// process-wide it is pushed to the new instance immediately.
func (r *Registry) Register(name string, p Plugin, config string) error {
	if name == "" {
		return oops.Code(CodeInvalidBinding).Errorf("plugin name cannot be empty")
	}
	if p == nil {
		return oops.Code(CodeInvalidBinding).With("plugin", name).Errorf("plugin instance cannot be nil")
	}

	commands, err := newCommandSet(p.Commands())
	if err != nil {
		return oops.With("plugin", name).Wrap(err)
	}

	// Config is applied before the handle is visible to dispatch.
	if c, ok := p.(Configurable); ok {
		if err := c.Configure(config); err != nil {
			return oops.Code(CodeHandlerError).
				With("plugin", name).
				Hint("plugin rejected its configuration").
				Wrap(err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.plugins[name]; ok {
		slog.Warn("plugin conflict: overwriting existing registration",
			"plugin", name)
	}

	h := &Handle{Name: name, plugin: p, commands: commands}
	if r.hasSurface {
		pushSurface(h, r.surface)
	}
	r.plugins[name] = h
	return nil
}

// AttachSurface records the process-wide surface and pushes it to every
// registered handle that has not received one yet. Idempotent: handles
// already attached are skipped, so a surface reaches each plugin instance
// at most once.
func (r *Registry) AttachSurface(surface Surface) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.surface = surface
	r.hasSurface = true
	for _, h := range r.plugins {
		pushSurface(h, surface)
	}
}

// pushSurface forwards the surface to an unattached handle. Caller holds
// the registry lock.
func pushSurface(h *Handle, surface Surface) {
	if h.attached {
		return
	}
	h.attached = true
	if aware, ok := h.plugin.(SurfaceAware); ok {
		aware.AttachSurface(surface)
	}
}

// Lookup resolves a plugin handle by exact name match.
func (r *Registry) Lookup(name string) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.plugins[name]
	return h, ok
}

// Names returns the registered plugin names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
