// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Crosscall Contributors

package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Choochmeque/crosscall/internal/invoke"
)

// rejectingPlugin rejects with a structured or raw payload.
type rejectingPlugin struct{}

func (p *rejectingPlugin) Commands() []invoke.Binding {
	return []invoke.Binding{
		invoke.Sync("structured", func(inv *invoke.Invocation) {
			inv.Reject(`{"code":"E_NOPE","message":"not today"}`)
		}),
		invoke.Sync("raw", func(inv *invoke.Invocation) {
			inv.Reject("something broke")
		}),
		invoke.Sync("ok", func(inv *invoke.Invocation) {
			inv.Resolve(`{"value":42}`)
		}),
		invoke.Sync("hang", func(_ *invoke.Invocation) {
			// Never responds; the caller-side contract violation.
		}),
	}
}

func TestCall_Success(t *testing.T) {
	rt := newTestRuntime(t)
	require.NoError(t, rt.RegisterPlugin("svc", &rejectingPlugin{}, "", nil))

	payload, err := rt.Call(context.Background(), "svc", "ok", "")
	require.NoError(t, err)
	assert.Equal(t, `{"value":42}`, payload)
}

func TestCall_StructuredRejection(t *testing.T) {
	rt := newTestRuntime(t)
	require.NoError(t, rt.RegisterPlugin("svc", &rejectingPlugin{}, "", nil))

	_, err := rt.Call(context.Background(), "svc", "structured", "")
	require.Error(t, err)

	var resp *ErrorResponse
	require.True(t, errors.As(err, &resp))
	assert.Equal(t, "[E_NOPE] - not today", resp.Error())
}

func TestCall_RawRejection(t *testing.T) {
	rt := newTestRuntime(t)
	require.NoError(t, rt.RegisterPlugin("svc", &rejectingPlugin{}, "", nil))

	_, err := rt.Call(context.Background(), "svc", "raw", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "something broke")
}

func TestCall_ContextBoundsTheWait(t *testing.T) {
	rt := newTestRuntime(t)
	require.NoError(t, rt.RegisterPlugin("svc", &rejectingPlugin{}, "", nil))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := rt.Call(ctx, "svc", "hang", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestErrorResponse_Rendering(t *testing.T) {
	code := "E_X"
	msg := "went wrong"

	assert.Equal(t, "[E_X] - went wrong", (&ErrorResponse{Code: &code, Message: &msg}).Error())
	assert.Equal(t, "[E_X]", (&ErrorResponse{Code: &code}).Error())
	assert.Equal(t, "went wrong", (&ErrorResponse{Message: &msg}).Error())
	assert.Empty(t, (&ErrorResponse{}).Error())
}
