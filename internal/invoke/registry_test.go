// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Crosscall Contributors

package invoke

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPlugin is a configurable test double implementing the optional
// capability interfaces.
type testPlugin struct {
	bindings  []Binding
	config    string
	configErr error
	surfaces  []Surface
}

func (p *testPlugin) Commands() []Binding { return p.bindings }

func (p *testPlugin) Configure(config string) error {
	p.config = config
	return p.configErr
}

func (p *testPlugin) AttachSurface(surface Surface) {
	p.surfaces = append(p.surfaces, surface)
}

// bareplugin implements only the Plugin interface.
type barePlugin struct {
	bindings []Binding
}

func (p *barePlugin) Commands() []Binding { return p.bindings }

func noopSync(_ *Invocation) {}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	p := &testPlugin{bindings: []Binding{Sync("ping", noopSync)}}

	err := reg.Register("echo", p, `{"greeting":"hi"}`)
	require.NoError(t, err)

	h, ok := reg.Lookup("echo")
	require.True(t, ok)
	assert.Equal(t, "echo", h.Name)

	_, ok = h.Resolve("ping")
	assert.True(t, ok)
}

func TestRegistry_ConfigAppliedBeforeDispatch(t *testing.T) {
	reg := NewRegistry()
	p := &testPlugin{bindings: []Binding{Sync("ping", noopSync)}}

	require.NoError(t, reg.Register("echo", p, "config-blob"))
	assert.Equal(t, "config-blob", p.config)
}

func TestRegistry_ConfigErrorFailsRegistration(t *testing.T) {
	reg := NewRegistry()
	p := &testPlugin{
		bindings:  []Binding{Sync("ping", noopSync)},
		configErr: errors.New("bad config"),
	}

	err := reg.Register("echo", p, "{}")
	require.Error(t, err)

	_, ok := reg.Lookup("echo")
	assert.False(t, ok)
}

func TestRegistry_LookupUnknown(t *testing.T) {
	reg := NewRegistry()
	_, ok := reg.Lookup("missing")
	assert.False(t, ok)
}

func TestRegistry_DuplicateNameLastWriteWins(t *testing.T) {
	reg := NewRegistry()
	first := &testPlugin{bindings: []Binding{Sync("one", noopSync)}}
	second := &testPlugin{bindings: []Binding{Sync("two", noopSync)}}

	require.NoError(t, reg.Register("dup", first, ""))
	require.NoError(t, reg.Register("dup", second, ""))

	h, ok := reg.Lookup("dup")
	require.True(t, ok)
	_, ok = h.Resolve("two")
	assert.True(t, ok)
	_, ok = h.Resolve("one")
	assert.False(t, ok)
}

func TestRegistry_RejectsEmptyNameAndNilPlugin(t *testing.T) {
	reg := NewRegistry()
	assert.Error(t, reg.Register("", &testPlugin{}, ""))
	assert.Error(t, reg.Register("x", nil, ""))
}

func TestRegistry_SurfaceAttachedToExistingPlugins(t *testing.T) {
	reg := NewRegistry()
	p := &testPlugin{bindings: []Binding{Sync("ping", noopSync)}}
	require.NoError(t, reg.Register("echo", p, ""))

	surface := struct{ id int }{id: 1}
	reg.AttachSurface(surface)

	require.Len(t, p.surfaces, 1)
	assert.Equal(t, Surface(surface), p.surfaces[0])
}

func TestRegistry_SurfaceAttachedAtRegistration(t *testing.T) {
	reg := NewRegistry()
	reg.AttachSurface("surface-handle")

	p := &testPlugin{bindings: []Binding{Sync("ping", noopSync)}}
	require.NoError(t, reg.Register("echo", p, ""))

	require.Len(t, p.surfaces, 1)
}

func TestRegistry_SurfaceAttachIdempotent(t *testing.T) {
	reg := NewRegistry()
	p := &testPlugin{bindings: []Binding{Sync("ping", noopSync)}}
	require.NoError(t, reg.Register("echo", p, ""))

	reg.AttachSurface("surface-handle")
	reg.AttachSurface("surface-handle")

	assert.Len(t, p.surfaces, 1, "surface must be pushed at most once per plugin instance")
}

func TestRegistry_SurfaceSkipsUnawarePlugins(t *testing.T) {
	reg := NewRegistry()
	p := &barePlugin{bindings: []Binding{Sync("ping", noopSync)}}
	require.NoError(t, reg.Register("plain", p, ""))

	// Must not panic on a plugin without surface support.
	reg.AttachSurface("surface-handle")
}

func TestRegistry_Names(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("beta", &barePlugin{}, ""))
	require.NoError(t, reg.Register("alpha", &barePlugin{}, ""))

	assert.Equal(t, []string{"alpha", "beta"}, reg.Names())
}
