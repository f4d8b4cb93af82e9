// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Crosscall Contributors

package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/Choochmeque/crosscall/internal/bridge"
	"github.com/Choochmeque/crosscall/internal/invoke"
)

// Host builds an invoke.Plugin from a manifest of a specific runtime type.
type Host interface {
	// Load initializes a plugin from its manifest and directory.
	Load(ctx context.Context, manifest *Manifest, dir string) (invoke.Plugin, error)
}

// Manager discovers plugins on disk and registers them with a runtime.
type Manager struct {
	pluginsDir string
	hosts      map[Type]Host
	loaded     map[string]*DiscoveredPlugin
	mu         sync.RWMutex
}

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithHost binds a runtime type to its host.
func WithHost(t Type, h Host) ManagerOption {
	return func(m *Manager) {
		m.hosts[t] = h
	}
}

// NewManager creates a plugin manager for the given directory.
func NewManager(pluginsDir string, opts ...ManagerOption) *Manager {
	m := &Manager{
		pluginsDir: pluginsDir,
		hosts:      make(map[Type]Host),
		loaded:     make(map[string]*DiscoveredPlugin),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// DiscoveredPlugin contains a manifest and its directory.
type DiscoveredPlugin struct {
	Manifest *Manifest
	Dir      string
}

// Discover finds all valid plugins in the plugins directory.
// Invalid plugins are logged and skipped.
func (m *Manager) Discover(_ context.Context) ([]*DiscoveredPlugin, error) {
	entries, err := os.ReadDir(m.pluginsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No plugins directory
		}
		return nil, fmt.Errorf("failed to read plugins directory: %w", err)
	}

	var plugins []*DiscoveredPlugin
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		pluginDir := filepath.Join(m.pluginsDir, entry.Name())
		manifestPath := filepath.Join(pluginDir, "plugin.yaml")

		data, err := os.ReadFile(manifestPath) //nolint:gosec // manifestPath is constructed from ReadDir entries
		if err != nil {
			slog.Warn("skipping plugin without manifest",
				"dir", entry.Name(),
				"error", err)
			continue
		}

		manifest, err := ParseManifest(data)
		if err != nil {
			slog.Warn("skipping plugin with invalid manifest",
				"dir", entry.Name(),
				"error", err)
			continue
		}

		plugins = append(plugins, &DiscoveredPlugin{
			Manifest: manifest,
			Dir:      pluginDir,
		})
	}

	return plugins, nil
}

// LoadAll discovers every plugin and registers it with the runtime.
// Individual plugin failures are logged as warnings without failing the
// whole load, so the host starts even when some plugins are broken.
func (m *Manager) LoadAll(ctx context.Context, rt *bridge.Runtime) error {
	discovered, err := m.Discover(ctx)
	if err != nil {
		return err
	}

	for _, dp := range discovered {
		if err := m.loadPlugin(ctx, rt, dp); err != nil {
			slog.Error("failed to load plugin",
				"plugin", dp.Manifest.Name,
				"error", err)
			continue
		}
	}

	return nil
}

// loadPlugin builds and registers a single discovered plugin.
func (m *Manager) loadPlugin(ctx context.Context, rt *bridge.Runtime, dp *DiscoveredPlugin) error {
	host, ok := m.hosts[dp.Manifest.Type]
	if !ok {
		// Allow running without a host for this type configured.
		slog.Warn("no host configured for plugin type, skipping",
			"plugin", dp.Manifest.Name,
			"type", dp.Manifest.Type)
		return nil
	}

	p, err := host.Load(ctx, dp.Manifest, dp.Dir)
	if err != nil {
		return fmt.Errorf("load plugin %s: %w", dp.Manifest.Name, err)
	}

	if err := rt.RegisterPlugin(dp.Manifest.Name, p, dp.Manifest.Config, nil); err != nil {
		return fmt.Errorf("register plugin %s: %w", dp.Manifest.Name, err)
	}

	m.mu.Lock()
	m.loaded[dp.Manifest.Name] = dp
	m.mu.Unlock()

	return nil
}

// Loaded returns the names of successfully loaded plugins, sorted.
func (m *Manager) Loaded() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.loaded))
	for name := range m.loaded {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
