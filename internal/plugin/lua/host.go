// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Crosscall Contributors

package lua

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	plugins "github.com/Choochmeque/crosscall/internal/plugin"
	"github.com/Choochmeque/crosscall/internal/invoke"
)

// Compile-time interface check.
var _ plugins.Host = (*Host)(nil)

// Host loads Lua-scripted plugins. A script declares its commands in a
// global table:
//
//	commands = {
//	  ping = function(call)
//	    call.resolve("pong")
//	  end,
//	}
//
// Each entry becomes an error-returning command binding: a Lua runtime
// error surfaces as the invocation's error response, while resolve and
// reject remain the script's own responsibility.
type Host struct {
	factory *StateFactory
}

// NewHost creates a Lua plugin host.
func NewHost() *Host {
	return &Host{factory: NewStateFactory()}
}

// Load reads and validates a Lua plugin, returning a Plugin whose
// bindings drive the script.
func (h *Host) Load(ctx context.Context, manifest *plugins.Manifest, dir string) (invoke.Plugin, error) {
	entryPath := filepath.Join(dir, manifest.LuaPlugin.Entry)
	code, err := os.ReadFile(filepath.Clean(entryPath))
	if err != nil {
		return nil, oops.In("lua").With("plugin", manifest.Name).With("operation", "load").With("path", entryPath).Hint("failed to read entry file").Wrap(err)
	}

	// Run once in a throwaway state to catch syntax errors and collect
	// the declared command names.
	L, err := h.factory.NewState(ctx)
	if err != nil {
		return nil, oops.In("lua").With("plugin", manifest.Name).With("operation", "load").Hint("failed to create validation state").Wrap(err)
	}
	defer L.Close()

	if err := L.DoString(string(code)); err != nil {
		return nil, oops.In("lua").With("plugin", manifest.Name).With("operation", "load").With("entry", manifest.LuaPlugin.Entry).Hint("syntax error").Wrap(err)
	}

	names, err := commandNames(L, manifest.Name)
	if err != nil {
		return nil, err
	}

	// Manifest command declarations are promises; a declared command that
	// the script does not define is a load error.
	for _, decl := range manifest.Commands {
		if decl.Convention == plugins.ConventionAsync {
			return nil, oops.In("lua").With("plugin", manifest.Name).With("command", decl.Name).New("async convention is not supported for lua plugins")
		}
		found := false
		for _, n := range names {
			if n == decl.Name {
				found = true
				break
			}
		}
		if !found {
			return nil, oops.In("lua").With("plugin", manifest.Name).With("command", decl.Name).New("declared command not defined by script")
		}
	}

	return &Plugin{
		name:     manifest.Name,
		code:     string(code),
		factory:  h.factory,
		commands: names,
	}, nil
}

// commandNames extracts the keys of the script's commands table.
func commandNames(L *lua.LState, plugin string) ([]string, error) {
	commands := L.GetGlobal("commands")
	table, ok := commands.(*lua.LTable)
	if !ok {
		return nil, oops.In("lua").With("plugin", plugin).With("operation", "load").New("script does not define a commands table")
	}

	var names []string
	var bad error
	table.ForEach(func(k, v lua.LValue) {
		if bad != nil {
			return
		}
		if k.Type() != lua.LTString {
			bad = oops.In("lua").With("plugin", plugin).Errorf("commands table key %s is not a string", k.String())
			return
		}
		if v.Type() != lua.LTFunction {
			bad = oops.In("lua").With("plugin", plugin).With("command", k.String()).New("commands table entry is not a function")
			return
		}
		names = append(names, k.String())
	})
	if bad != nil {
		return nil, bad
	}
	if len(names) == 0 {
		return nil, oops.In("lua").With("plugin", plugin).New("commands table is empty")
	}
	sort.Strings(names)
	return names, nil
}

// Plugin is a loaded Lua plugin. Each command runs in a fresh sandboxed
// state so commands never share interpreter state.
type Plugin struct {
	name     string
	code     string
	factory  *StateFactory
	commands []string
	config   string
}

// Commands returns one fallible binding per scripted command.
func (p *Plugin) Commands() []invoke.Binding {
	bindings := make([]invoke.Binding, 0, len(p.commands))
	for _, name := range p.commands {
		bindings = append(bindings, invoke.Fallible(name, p.handler(name)))
	}
	return bindings
}

// Configure stores the opaque config blob, exposed to scripts as the
// call.config field.
func (p *Plugin) Configure(config string) error {
	p.config = config
	return nil
}

// handler drives one scripted command for one invocation.
func (p *Plugin) handler(command string) invoke.FallibleHandler {
	return func(inv *invoke.Invocation) error {
		L, err := p.factory.NewState(context.Background())
		if err != nil {
			return oops.In("lua").With("plugin", p.name).With("command", command).Hint("failed to create state").Wrap(err)
		}
		defer L.Close()

		if err := L.DoString(p.code); err != nil {
			return oops.In("lua").With("plugin", p.name).With("command", command).Hint("failed to load code").Wrap(err)
		}

		table, ok := L.GetGlobal("commands").(*lua.LTable)
		if !ok {
			return oops.In("lua").With("plugin", p.name).New("commands table disappeared")
		}
		fn := table.RawGetString(command)
		if fn.Type() != lua.LTFunction {
			return oops.In("lua").With("plugin", p.name).With("command", command).New("command is not a function")
		}

		if err := L.CallByParam(lua.P{
			Fn:      fn,
			NRet:    0,
			Protect: true,
		}, p.buildCallTable(L, inv)); err != nil {
			return oops.In("lua").With("plugin", p.name).With("command", command).Wrap(err)
		}
		return nil
	}
}

// buildCallTable exposes the invocation to the script: data fields plus
// resolve/reject/send closures.
func (p *Plugin) buildCallTable(L *lua.LState, inv *invoke.Invocation) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "plugin", lua.LString(inv.Plugin))
	L.SetField(t, "command", lua.LString(inv.Command))
	L.SetField(t, "data", lua.LString(inv.Data))
	L.SetField(t, "config", lua.LString(p.config))

	L.SetField(t, "resolve", L.NewFunction(func(L *lua.LState) int {
		if L.GetTop() >= 1 {
			inv.Resolve(L.CheckString(1))
		} else {
			inv.ResolveEmpty()
		}
		return 0
	}))
	L.SetField(t, "reject", L.NewFunction(func(L *lua.LState) int {
		inv.Reject(L.OptString(1, ""))
		return 0
	}))
	L.SetField(t, "send", L.NewFunction(func(L *lua.LState) int {
		id := uint64(L.CheckNumber(1))
		inv.SendChannelData(id, L.CheckString(2))
		return 0
	}))
	return t
}
