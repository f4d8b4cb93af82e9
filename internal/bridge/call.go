// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Crosscall Contributors

package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/samber/oops"
)

// callID allocates invocation ids for the blocking Call helper. Host-issued
// ids from RunCommand live in a separate namespace owned by the host.
var callID atomic.Int32

// ErrorResponse is the structured error payload a plugin may reject with.
// Both fields are optional; unknown payloads are carried verbatim.
type ErrorResponse struct {
	Code    *string `json:"code"`
	Message *string `json:"message"`
}

// Error renders "[code] - message", omitting whichever part is absent.
func (e *ErrorResponse) Error() string {
	var sb strings.Builder
	if e.Code != nil {
		fmt.Fprintf(&sb, "[%s]", *e.Code)
		if e.Message != nil {
			sb.WriteString(" - ")
		}
	}
	if e.Message != nil {
		sb.WriteString(*e.Message)
	}
	return sb.String()
}

// Call runs a command and blocks until its terminal response, returning
// the success payload or an error decoded from the rejection payload.
// Channel data is routed to channels registered on the runtime. ctx only
// bounds the wait: the invocation itself cannot be canceled once accepted.
func (r *Runtime) Call(ctx context.Context, plugin, command, data string) (string, error) {
	type outcome struct {
		success bool
		payload string
	}
	// Buffered so a response arriving after ctx cancellation does not
	// strand the dispatcher goroutine.
	results := make(chan outcome, 1)

	id := callID.Add(1)
	r.RunCommand(id, plugin, command, data, func(_ int32, success bool, payload string) {
		results <- outcome{success: success, payload: payload}
	}, nil)

	select {
	case <-ctx.Done():
		return "", oops.With("plugin", plugin).With("command", command).
			Hint("invocation still pending; it cannot be canceled").
			Wrap(ctx.Err())
	case res := <-results:
		if res.success {
			return res.payload, nil
		}
		return "", decodeRejection(plugin, command, res.payload)
	}
}

// decodeRejection turns a rejection payload into an error, preferring the
// structured ErrorResponse form.
func decodeRejection(plugin, command, payload string) error {
	var resp ErrorResponse
	if err := json.Unmarshal([]byte(payload), &resp); err == nil && (resp.Code != nil || resp.Message != nil) {
		return oops.With("plugin", plugin).With("command", command).Wrap(&resp)
	}
	return oops.With("plugin", plugin).With("command", command).Errorf("%s", payload)
}
