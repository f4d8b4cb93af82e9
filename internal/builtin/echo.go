// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Crosscall Contributors

// Package builtin provides plugins compiled into the router itself.
// They exist for smoke-testing a deployment and as working examples of
// each calling convention.
package builtin

import (
	"log/slog"
	"time"

	"github.com/Choochmeque/crosscall/internal/invoke"
)

// EchoName is the registration name of the builtin echo plugin.
const EchoName = "echo"

// defaultDelay is how long the async delay command waits before
// resolving when the caller supplies no duration.
const defaultDelay = 10 * time.Millisecond

// streamChunks is how many channel messages the stream command emits.
const streamChunks = 3

// Echo exercises every calling convention: ping is synchronous, fail is
// fallible, delay is asynchronous, and stream emits channel data before
// resolving.
type Echo struct {
	surface invoke.Surface
	config  string
	delay   time.Duration
}

// NewEcho creates the builtin echo plugin.
func NewEcho() *Echo {
	return &Echo{delay: defaultDelay}
}

// Configure stores the opaque configuration blob for later echoing.
func (e *Echo) Configure(config string) error {
	e.config = config
	return nil
}

// AttachSurface records the host surface handle.
func (e *Echo) AttachSurface(surface invoke.Surface) {
	e.surface = surface
	slog.Debug("echo plugin attached to surface")
}

// Commands returns the echo command bindings.
func (e *Echo) Commands() []invoke.Binding {
	return []invoke.Binding{
		invoke.Sync("ping", e.ping),
		invoke.Sync("config", e.configEcho),
		invoke.Fallible("fail", e.fail),
		invoke.Async("delay", e.delayed),
		invoke.Sync("stream", e.stream),
	}
}

// ping responds immediately with a fixed payload.
func (e *Echo) ping(inv *invoke.Invocation) {
	inv.Resolve("pong")
}

// configEcho returns the configuration blob the plugin was registered
// with, or an empty response when none was supplied.
func (e *Echo) configEcho(inv *invoke.Invocation) {
	if e.config == "" {
		inv.ResolveEmpty()
		return
	}
	inv.Resolve(e.config)
}

// fail always reports an error carrying the invocation data.
func (e *Echo) fail(inv *invoke.Invocation) error {
	return &echoError{data: inv.Data}
}

// delayed resolves with the invocation data after a short wait, then
// signals completion.
func (e *Echo) delayed(inv *invoke.Invocation, done invoke.Completion) {
	go func() {
		time.Sleep(e.delay)
		inv.Resolve(inv.Data)
		done(nil)
	}()
}

// stream emits numbered channel chunks echoing the data, then resolves
// with no payload.
func (e *Echo) stream(inv *invoke.Invocation) {
	for i := uint64(1); i <= streamChunks; i++ {
		inv.SendChannelData(i, inv.Data)
	}
	inv.ResolveEmpty()
}

// echoError is the error the fail command reports.
type echoError struct {
	data string
}

func (e *echoError) Error() string {
	return "echo failure: " + e.data
}
