// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Crosscall Contributors

package invoke

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("crosscall/invoke")

// defaultQueueDepth is the buffered capacity of the serial execution
// queue. Submissions beyond it block the caller until the queue drains.
const defaultQueueDepth = 128

// Dispatcher drives invocations through resolution and execution.
//
// All command execution happens on one dedicated FIFO goroutine shared by
// every plugin and command, so a blocking handler never stalls the caller
// and two commands never race on shared plugin state. A handler's own
// asynchronous work runs outside this serialization once dispatched.
// Accepted invocations cannot be canceled and never time out.
type Dispatcher struct {
	registry *Registry
	queue    chan *Invocation
	done     chan struct{}

	mu     sync.RWMutex
	closed bool
}

// DispatcherOption configures a Dispatcher during construction.
type DispatcherOption func(*Dispatcher)

// WithQueueDepth overrides the buffered capacity of the execution queue.
func WithQueueDepth(depth int) DispatcherOption {
	return func(d *Dispatcher) {
		if depth > 0 {
			d.queue = make(chan *Invocation, depth)
		}
	}
}

// NewDispatcher creates a dispatcher over the given registry and starts
// its execution goroutine. Returns an error if registry is nil.
func NewDispatcher(registry *Registry, opts ...DispatcherOption) (*Dispatcher, error) {
	if registry == nil {
		return nil, oops.Errorf("registry cannot be nil")
	}
	d := &Dispatcher{
		registry: registry,
		queue:    make(chan *Invocation, defaultQueueDepth),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	go d.run()
	return d, nil
}

// Dispatch enqueues an invocation for execution. Invocations are drained
// in submission order. Failures are delivered through the invocation's
// response callback, never returned: a rejected invocation is reported,
// not fatal.
func (d *Dispatcher) Dispatch(inv *Invocation) {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		inv.Reject("dispatcher shut down")
		recordInvocation(inv.Plugin, inv.Command, StatusDropped)
		return
	}
	// Holding the read lock across the send means Close cannot observe an
	// in-flight submission as already handled: it either lands on the
	// queue (and is drained or rejected by run) or sees closed above.
	d.queue <- inv
	d.mu.RUnlock()
}

// Close stops the execution goroutine. Queued invocations that have not
// started are rejected, never silently lost. Safe to call more than once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	close(d.done)
}

// run drains the serial queue until Close.
func (d *Dispatcher) run() {
	for {
		select {
		case <-d.done:
			// Reject anything still queued so callers are not left pending.
			for {
				select {
				case inv := <-d.queue:
					inv.Reject("dispatcher shut down")
					recordInvocation(inv.Plugin, inv.Command, StatusDropped)
				default:
					return
				}
			}
		case inv := <-d.queue:
			d.execute(inv)
		}
	}
}

// execute runs one invocation: lookup, resolution, then the matched
// calling convention.
func (d *Dispatcher) execute(inv *Invocation) {
	ctx, span := tracer.Start(context.Background(), "invoke.execute",
		trace.WithAttributes(
			attribute.String("invocation.id", inv.ID.String()),
			attribute.String("plugin.name", inv.Plugin),
			attribute.String("command.name", inv.Command),
		),
	)
	defer span.End()

	handle, ok := d.registry.Lookup(inv.Plugin)
	if !ok {
		err := ErrPluginNotFound(inv.Plugin)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.WarnContext(ctx, "plugin not found",
			"invocation_id", inv.ID.String(),
			"plugin", inv.Plugin,
			"command", inv.Command)
		recordInvocation(inv.Plugin, inv.Command, StatusPluginNotFound)
		inv.Reject(WireMessage(err))
		return
	}

	binding, ok := handle.Resolve(inv.Command)
	if !ok {
		err := ErrCommandNotFound(inv.Plugin, inv.Command, handle.Directory())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.WarnContext(ctx, "command not found",
			"invocation_id", inv.ID.String(),
			"plugin", inv.Plugin,
			"command", inv.Command)
		recordInvocation(inv.Plugin, inv.Command, StatusCommandNotFound)
		inv.Reject(WireMessage(err))
		return
	}

	span.SetAttributes(attribute.String("command.convention", binding.Convention().String()))

	start := time.Now()
	switch binding.Convention() {
	case ConventionSync:
		// The handler owns both response paths. If it returns without
		// responding the caller hangs; that contract is documented, not
		// enforced.
		binding.sync(inv)

	case ConventionFallible:
		if err := binding.fallible(inv); err != nil {
			wrapped := ErrHandlerError(inv.Plugin, inv.Command, err)
			span.RecordError(wrapped)
			span.SetStatus(codes.Error, wrapped.Error())
			slog.WarnContext(ctx, "handler returned error",
				"invocation_id", inv.ID.String(),
				"plugin", inv.Plugin,
				"command", inv.Command,
				"error", err)
			inv.Reject(err.Error())
		}

	case ConventionAsync:
		binding.async(inv, func(err error) {
			if err != nil {
				wrapped := ErrHandlerError(inv.Plugin, inv.Command, err)
				slog.Warn("async handler reported error",
					"invocation_id", inv.ID.String(),
					"plugin", inv.Plugin,
					"command", inv.Command,
					"error", wrapped)
				inv.Reject("async handler error: " + err.Error())
				return
			}
			// A nil completion error synthesizes nothing; the handler is
			// expected to have resolved on its own success path.
			if !inv.Responded() {
				slog.Debug("async completion with no terminal response sent",
					"invocation_id", inv.ID.String(),
					"plugin", inv.Plugin,
					"command", inv.Command)
			}
		})
	}
	recordDuration(inv.Plugin, inv.Command, binding.Convention().String(), time.Since(start))
	recordInvocation(inv.Plugin, inv.Command, StatusExecuted)
}
