// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Crosscall Contributors

package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validManifestYAML() []byte {
	return []byte(`name: echo
version: 1.0.0
type: lua
commands:
  - name: ping
    convention: sync
config: '{"greeting":"hi"}'
lua-plugin:
  entry: main.lua
`)
}

func TestParseManifest_Valid(t *testing.T) {
	m, err := ParseManifest(validManifestYAML())
	require.NoError(t, err)

	assert.Equal(t, "echo", m.Name)
	assert.Equal(t, "1.0.0", m.Version)
	assert.Equal(t, TypeLua, m.Type)
	require.Len(t, m.Commands, 1)
	assert.Equal(t, "ping", m.Commands[0].Name)
	assert.Equal(t, ConventionSync, m.Commands[0].Convention)
	assert.Equal(t, `{"greeting":"hi"}`, m.Config)
	require.NotNil(t, m.LuaPlugin)
	assert.Equal(t, "main.lua", m.LuaPlugin.Entry)
}

func TestParseManifest_Empty(t *testing.T) {
	_, err := ParseManifest(nil)
	assert.Error(t, err)
}

func TestParseManifest_InvalidYAML(t *testing.T) {
	_, err := ParseManifest([]byte("name: [unterminated"))
	assert.Error(t, err)
}

func TestManifest_Validate(t *testing.T) {
	base := func() *Manifest {
		return &Manifest{
			Name:      "echo",
			Version:   "1.2.3",
			Type:      TypeLua,
			LuaPlugin: &LuaConfig{Entry: "main.lua"},
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("bad name", func(t *testing.T) {
		for _, name := range []string{"", "Echo", "1echo", "echo-", "has space"} {
			m := base()
			m.Name = name
			assert.Error(t, m.Validate(), "name %q should be rejected", name)
		}
	})

	t.Run("name too long", func(t *testing.T) {
		m := base()
		for range maxNameLength {
			m.Name += "a"
		}
		m.Name += "a"
		assert.Error(t, m.Validate())
	})

	t.Run("missing version", func(t *testing.T) {
		m := base()
		m.Version = ""
		assert.Error(t, m.Validate())
	})

	t.Run("non-semver version", func(t *testing.T) {
		m := base()
		m.Version = "not-a-version"
		assert.Error(t, m.Validate())
	})

	t.Run("unknown type", func(t *testing.T) {
		m := base()
		m.Type = "wasm"
		assert.Error(t, m.Validate())
	})

	t.Run("lua without entry", func(t *testing.T) {
		m := base()
		m.LuaPlugin = &LuaConfig{}
		assert.Error(t, m.Validate())

		m.LuaPlugin = nil
		assert.Error(t, m.Validate())
	})

	t.Run("bad command convention", func(t *testing.T) {
		m := base()
		m.Commands = []CommandDecl{{Name: "ping", Convention: "threaded"}}
		assert.Error(t, m.Validate())
	})

	t.Run("duplicate command", func(t *testing.T) {
		m := base()
		m.Commands = []CommandDecl{{Name: "ping"}, {Name: "ping"}}
		assert.Error(t, m.Validate())
	})
}
