// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Crosscall Contributors

package invoke

import (
	"log/slog"
	"sync/atomic"

	"github.com/oklog/ulid/v2"
)

// Invocation is the per-call context handed to command handlers. It is
// constructed fresh for every call and must not be retained after the
// terminal response fires.
type Invocation struct {
	// ID correlates log records and spans for one call.
	ID ulid.ULID

	Plugin  string
	Command string

	// Data is the opaque serialized request payload. The router forwards
	// it verbatim and never parses it.
	Data string

	respond ResponseFunc
	channel ChannelFunc

	// responded consumes the one-shot terminal response. Set exactly once;
	// later sends are dropped.
	responded atomic.Bool
	finalTag  atomic.Int32
}

// NewInvocation creates an invocation context for one call. respond receives
// the terminal response; channel receives out-of-band data. Both may be nil
// in tests.
func NewInvocation(plugin, command, data string, respond ResponseFunc, channel ChannelFunc) *Invocation {
	return &Invocation{
		ID:      ulid.Make(),
		Plugin:  plugin,
		Command: command,
		Data:    data,
		respond: respond,
		channel: channel,
	}
}

// Respond delivers the terminal response. The first call wins; any further
// call is a protocol misuse by the handler and is dropped with a diagnostic
// rather than delivered twice.
func (inv *Invocation) Respond(tag ResponseTag, payload *string) {
	if !inv.responded.CompareAndSwap(false, true) {
		recordDuplicateResponse(inv.Plugin, inv.Command)
		slog.Warn("duplicate terminal response dropped",
			"invocation_id", inv.ID.String(),
			"plugin", inv.Plugin,
			"command", inv.Command,
			"tag", tag.String(),
			"code", CodeProtocolMisuse)
		return
	}
	inv.finalTag.Store(int32(tag))
	recordResponse(inv.Plugin, inv.Command, tag.String())
	if inv.respond != nil {
		inv.respond(tag, payload)
	}
}

// Resolve sends a success response with the given payload.
func (inv *Invocation) Resolve(payload string) {
	inv.Respond(TagSuccess, &payload)
}

// ResolveEmpty sends a success response with no payload.
func (inv *Invocation) ResolveEmpty() {
	inv.Respond(TagSuccess, nil)
}

// Reject sends an error response with the given payload.
func (inv *Invocation) Reject(payload string) {
	inv.Respond(TagError, &payload)
}

// SendChannelData delivers one chunk on the given channel. Unlike Respond
// it may be called any number of times; ordering relative to the terminal
// response is the handler author's contract, not enforced here.
func (inv *Invocation) SendChannelData(channelID uint64, payload string) {
	recordChannelSend(inv.Plugin, inv.Command)
	if inv.channel != nil {
		inv.channel(channelID, payload)
	}
}

// Responded reports whether the terminal response has fired.
func (inv *Invocation) Responded() bool {
	return inv.responded.Load()
}

// FinalTag returns the tag of the delivered terminal response. Only
// meaningful once Responded reports true.
func (inv *Invocation) FinalTag() ResponseTag {
	return ResponseTag(inv.finalTag.Load())
}
