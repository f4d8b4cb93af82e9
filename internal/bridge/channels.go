// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Crosscall Contributors

package bridge

import (
	"log/slog"
	"sync"
)

// channelTable maps channel ids to host-side sinks. Channels outlive any
// single invocation; a command may keep streaming to a channel after its
// terminal response has fired.
type channelTable struct {
	mu     sync.Mutex
	next   uint64
	sinks  map[uint64]func(payload string)
	closed map[uint64]bool
}

func newChannelTable() *channelTable {
	return &channelTable{
		sinks:  make(map[uint64]func(payload string)),
		closed: make(map[uint64]bool),
	}
}

// RegisterChannel allocates a channel id and binds a sink to it. Data sent
// by plugins to that id is delivered to the sink until CloseChannel.
func (r *Runtime) RegisterChannel(sink func(payload string)) uint64 {
	return r.channels.register(sink)
}

// CloseChannel unbinds a channel id. Data sent to a closed or unknown
// channel is dropped.
func (r *Runtime) CloseChannel(id uint64) {
	r.channels.close(id)
}

func (t *channelTable) register(sink func(payload string)) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	id := t.next
	t.sinks[id] = sink
	return id
}

func (t *channelTable) close(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sinks, id)
	t.closed[id] = true
}

// deliver routes one chunk to its sink. Unknown ids are dropped with a
// debug record rather than treated as errors; the plugin author owns the
// ordering contract between channel data and the terminal response.
func (t *channelTable) deliver(id uint64, payload string) {
	t.mu.Lock()
	sink, ok := t.sinks[id]
	wasClosed := t.closed[id]
	t.mu.Unlock()

	if !ok {
		if !wasClosed {
			slog.Debug("channel data for unknown channel dropped", "channel_id", id)
		}
		return
	}
	sink(payload)
}
