// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Crosscall Contributors

// Package plugin provides plugin discovery and lifecycle for the
// invocation router: manifest parsing and validation, and loading of
// scripted plugins into a runtime.
package plugin

import (
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// Type identifies the plugin runtime.
type Type string

// Plugin types supported by the router.
const (
	TypeLua Type = "lua"
)

// Conventions a manifest may declare for a command.
const (
	ConventionSync     = "sync"
	ConventionFallible = "fallible"
	ConventionAsync    = "async"
)

// CommandDecl declares one command a plugin exposes, used to cross-check
// the handlers found at load time.
type CommandDecl struct {
	Name       string `yaml:"name" json:"name"`
	Convention string `yaml:"convention,omitempty" json:"convention,omitempty"`
}

// Manifest represents a plugin.yaml file.
type Manifest struct {
	Name     string        `yaml:"name" json:"name"`
	Version  string        `yaml:"version" json:"version"`
	Type     Type          `yaml:"type" json:"type"`
	Commands []CommandDecl `yaml:"commands,omitempty" json:"commands,omitempty"`
	// Config is the opaque blob handed to the plugin at registration.
	// The router does not interpret it.
	Config    string     `yaml:"config,omitempty" json:"config,omitempty"`
	LuaPlugin *LuaConfig `yaml:"lua-plugin,omitempty" json:"lua-plugin,omitempty"`
}

// LuaConfig holds Lua-specific configuration.
type LuaConfig struct {
	Entry string `yaml:"entry" json:"entry"`
}

// maxNameLength is the maximum allowed length for plugin names.
const maxNameLength = 64

// namePattern validates plugin names: lowercase letter first, then
// lowercase letters, digits, or hyphens, not ending with a hyphen.
var namePattern = regexp.MustCompile(`^[a-z]([a-z0-9-]*[a-z0-9])?$`)

// ParseManifest parses and validates a plugin.yaml file.
func ParseManifest(data []byte) (*Manifest, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("manifest data is empty")
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks manifest constraints.
func (m *Manifest) Validate() error {
	if m.Name == "" || !namePattern.MatchString(m.Name) {
		return fmt.Errorf("name %q must start with a-z, contain only a-z, 0-9, hyphens, and not end with a hyphen", m.Name)
	}
	if len(m.Name) > maxNameLength {
		return fmt.Errorf("name must be %d characters or less, got %d", maxNameLength, len(m.Name))
	}

	if m.Version == "" {
		return fmt.Errorf("version is required")
	}
	if _, err := semver.NewVersion(m.Version); err != nil {
		return fmt.Errorf("version %q is not valid semver: %w", m.Version, err)
	}

	seen := make(map[string]bool, len(m.Commands))
	for _, c := range m.Commands {
		if c.Name == "" {
			return fmt.Errorf("command name cannot be empty")
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate command declaration %q", c.Name)
		}
		seen[c.Name] = true
		switch c.Convention {
		case "", ConventionSync, ConventionFallible, ConventionAsync:
		default:
			return fmt.Errorf("command %q: convention must be sync, fallible, or async, got %q", c.Name, c.Convention)
		}
	}

	switch m.Type {
	case TypeLua:
		if m.LuaPlugin == nil {
			return fmt.Errorf("lua-plugin is required when type is lua")
		}
		if m.LuaPlugin.Entry == "" {
			return fmt.Errorf("lua-plugin.entry is required")
		}
	default:
		return fmt.Errorf("type must be 'lua', got %q", m.Type)
	}

	return nil
}
