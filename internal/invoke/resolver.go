// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Crosscall Contributors

package invoke

import (
	"sort"

	"github.com/samber/oops"
)

// commandSet is a plugin's registration-time command directory: every
// binding the plugin declared, grouped by command name with one slot per
// convention. Built once during registration and immutable afterwards.
type commandSet struct {
	groups map[string]*bindingGroup
}

// bindingGroup holds up to one binding per convention for a single
// command name.
type bindingGroup struct {
	async    *Binding
	fallible *Binding
	sync     *Binding
}

// newCommandSet validates and indexes a plugin's declared bindings.
// Declaring two bindings with the same name and convention is a
// registration error; declaring different conventions under one name is
// allowed and resolved by precedence.
func newCommandSet(bindings []Binding) (*commandSet, error) {
	set := &commandSet{groups: make(map[string]*bindingGroup)}
	for i := range bindings {
		b := bindings[i]
		if !b.valid() {
			return nil, oops.Code(CodeInvalidBinding).
				With("command", b.Command).
				Errorf("binding %q has no handler", b.Command)
		}
		group, ok := set.groups[b.Command]
		if !ok {
			group = &bindingGroup{}
			set.groups[b.Command] = group
		}
		var slot **Binding
		switch b.Convention() {
		case ConventionAsync:
			slot = &group.async
		case ConventionFallible:
			slot = &group.fallible
		default:
			slot = &group.sync
		}
		if *slot != nil {
			return nil, oops.Code(CodeInvalidBinding).
				With("command", b.Command).
				With("convention", b.Convention().String()).
				Errorf("duplicate %s binding for command %q", b.Convention(), b.Command)
		}
		*slot = &b
	}
	return set, nil
}

// Resolve returns the binding for a command name, matched verbatim
// (case-sensitive). When a name carries several conventions the first
// match in precedence order wins: async, then fallible, then sync.
func (s *commandSet) Resolve(command string) (Binding, bool) {
	group, ok := s.groups[command]
	if !ok {
		return Binding{}, false
	}
	switch {
	case group.async != nil:
		return *group.async, true
	case group.fallible != nil:
		return *group.fallible, true
	case group.sync != nil:
		return *group.sync, true
	}
	return Binding{}, false
}

// Directory renders every declared binding as a "signature" line, sorted
// by name for stable output. Returned verbatim on a CommandNotFound error.
func (s *commandSet) Directory() []string {
	lines := make([]string, 0, len(s.groups))
	for _, group := range s.groups {
		for _, b := range []*Binding{group.async, group.fallible, group.sync} {
			if b != nil {
				lines = append(lines, b.Signature())
			}
		}
	}
	sort.Strings(lines)
	return lines
}
