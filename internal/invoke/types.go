// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Crosscall Contributors

// Package invoke provides the plugin registry, calling-convention resolver,
// and invocation dispatcher.
package invoke

// Surface is an opaque rendering-surface handle created by the embedding
// application. The router never owns it; it is only forwarded to plugins.
type Surface any

// ResponseTag distinguishes the two terminal outcomes of an invocation.
type ResponseTag uint8

// Response tags used on the wire. The host computes success by comparing
// the delivered tag against TagSuccess.
const (
	TagSuccess ResponseTag = 0
	TagError   ResponseTag = 1
)

// String returns the tag name for logs and metrics.
func (t ResponseTag) String() string {
	if t == TagSuccess {
		return "success"
	}
	return "error"
}

// ResponseFunc delivers the terminal response for an invocation.
// A nil payload means the response carries no payload, which is distinct
// from an empty string.
type ResponseFunc func(tag ResponseTag, payload *string)

// ChannelFunc delivers out-of-band channel data. It may be called any
// number of times and is never terminal.
type ChannelFunc func(channelID uint64, payload string)

// Completion is the callback passed to async handlers. A non-nil error is
// forwarded to the caller on the error tag; a nil error produces no
// synthesized response - the handler owns its own success path.
type Completion func(err error)

// Handler signatures for the three supported calling conventions.
type (
	// SyncHandler must call Respond (or Resolve/Reject) before returning.
	// The dispatcher never synthesizes a response for it.
	SyncHandler func(inv *Invocation)

	// FallibleHandler reports failure through its return value; the
	// dispatcher translates a non-nil error into an error-tag response.
	// On success the handler must respond itself.
	FallibleHandler func(inv *Invocation) error

	// AsyncHandler completes independently of its return; the completion
	// callback may fire on any goroutine.
	AsyncHandler func(inv *Invocation, done Completion)
)

// Convention identifies which handler shape a binding carries.
type Convention uint8

// Conventions in resolution precedence order: async wins over fallible,
// fallible wins over sync.
const (
	ConventionAsync Convention = iota
	ConventionFallible
	ConventionSync
)

// String returns the convention name.
func (c Convention) String() string {
	switch c {
	case ConventionAsync:
		return "async"
	case ConventionFallible:
		return "fallible"
	default:
		return "sync"
	}
}

// Binding ties a command name to exactly one handler variant. Use the
// Sync, Fallible, and Async constructors; a zero Binding is invalid.
type Binding struct {
	Command  string
	sync     SyncHandler
	fallible FallibleHandler
	async    AsyncHandler
}

// Sync binds a synchronous handler to a command name.
func Sync(command string, h SyncHandler) Binding {
	return Binding{Command: command, sync: h}
}

// Fallible binds an error-returning handler to a command name.
func Fallible(command string, h FallibleHandler) Binding {
	return Binding{Command: command, fallible: h}
}

// Async binds an asynchronous handler to a command name.
func Async(command string, h AsyncHandler) Binding {
	return Binding{Command: command, async: h}
}

// Convention returns the handler shape this binding carries.
func (b Binding) Convention() Convention {
	switch {
	case b.async != nil:
		return ConventionAsync
	case b.fallible != nil:
		return ConventionFallible
	default:
		return ConventionSync
	}
}

// Signature renders the binding's accepted shape for the command
// directory returned on a CommandNotFound error.
func (b Binding) Signature() string {
	switch b.Convention() {
	case ConventionAsync:
		return b.Command + "(invocation, completion)"
	case ConventionFallible:
		return b.Command + "(invocation) -> error"
	default:
		return b.Command + "(invocation)"
	}
}

// valid reports whether exactly one handler variant is set.
func (b Binding) valid() bool {
	return b.Command != "" && (b.sync != nil || b.fallible != nil || b.async != nil)
}

// Plugin is the contract every registered plugin fulfils: a static set of
// command bindings declared at registration time.
type Plugin interface {
	// Commands returns the command bindings this plugin exposes.
	// Called once during registration; the returned set is fixed for
	// the plugin's lifetime.
	Commands() []Binding
}

// Configurable is implemented by plugins that accept a configuration blob.
// Configure runs during registration, before any command can be dispatched.
// The plugin interprets the blob itself; the router does not parse it.
type Configurable interface {
	Configure(config string) error
}

// SurfaceAware is implemented by plugins that need the application's
// rendering surface. AttachSurface is called at most once per plugin
// instance.
type SurfaceAware interface {
	AttachSurface(surface Surface)
}
