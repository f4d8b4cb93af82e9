// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Crosscall Contributors

package bridge

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Choochmeque/crosscall/internal/invoke"
)

// channelPlugin streams to whatever channel id its payload names.
type channelPlugin struct {
	channelID uint64
}

func (p *channelPlugin) Commands() []invoke.Binding {
	return []invoke.Binding{
		invoke.Sync("emit", func(inv *invoke.Invocation) {
			inv.SendChannelData(p.channelID, inv.Data)
			inv.ResolveEmpty()
		}),
	}
}

func TestChannels_RegisteredSinkReceivesData(t *testing.T) {
	rt := newTestRuntime(t)

	var mu sync.Mutex
	var got []string
	id := rt.RegisterChannel(func(payload string) {
		mu.Lock()
		got = append(got, payload)
		mu.Unlock()
	})

	require.NoError(t, rt.RegisterPlugin("chan", &channelPlugin{channelID: id}, "", nil))

	c := newResultCollector()
	// nil onChannelData routes through the runtime's channel table.
	rt.RunCommand(1, "chan", "emit", "hello", c.onResult, nil)
	c.wait(t)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"hello"}, got)
}

func TestChannels_ClosedChannelDropsData(t *testing.T) {
	rt := newTestRuntime(t)

	var mu sync.Mutex
	var got []string
	id := rt.RegisterChannel(func(payload string) {
		mu.Lock()
		got = append(got, payload)
		mu.Unlock()
	})
	rt.CloseChannel(id)

	require.NoError(t, rt.RegisterPlugin("chan", &channelPlugin{channelID: id}, "", nil))

	c := newResultCollector()
	rt.RunCommand(1, "chan", "emit", "dropped", c.onResult, nil)
	c.wait(t)

	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, got)
}

func TestChannels_UnknownChannelDropsData(t *testing.T) {
	rt := newTestRuntime(t)
	require.NoError(t, rt.RegisterPlugin("chan", &channelPlugin{channelID: 999}, "", nil))

	c := newResultCollector()
	rt.RunCommand(1, "chan", "emit", "nowhere", c.onResult, nil)

	res := c.wait(t)
	assert.True(t, res.success)
}

func TestChannels_IDsAreUnique(t *testing.T) {
	rt := newTestRuntime(t)
	a := rt.RegisterChannel(func(string) {})
	b := rt.RegisterChannel(func(string) {})
	assert.NotEqual(t, a, b)
}
