// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Crosscall Contributors

package control

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/Choochmeque/crosscall/internal/xdg"
)

// Client talks to a router's control socket. Requests that fail to
// connect are retried with fibonacci backoff, which covers the window
// where the router is still starting up.
type Client struct {
	httpClient *http.Client
	backoff    func() retry.Backoff
}

// NewClient creates a control socket client for the given socket path.
// If socketPath is empty the default path is used.
func NewClient(socketPath string) *Client {
	if socketPath == "" {
		socketPath = xdg.SocketPath()
	}
	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext: func(_ context.Context, _, _ string) (net.Conn, error) {
					return net.Dial("unix", socketPath)
				},
			},
			Timeout: 35 * time.Second,
		},
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(4, retry.NewFibonacci(50*time.Millisecond))
		},
	}
}

// Health queries the /health endpoint.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.getJSON(ctx, "/health", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status queries the /status endpoint.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.getJSON(ctx, "/status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Plugins queries the /plugins endpoint.
func (c *Client) Plugins(ctx context.Context) ([]PluginInfo, error) {
	var resp []PluginInfo
	if err := c.getJSON(ctx, "/plugins", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Invoke runs a command through the router and returns its terminal
// response together with any accumulated channel data.
func (c *Client) Invoke(ctx context.Context, req InvokeRequest) (*InvokeResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode invoke request: %w", err)
	}

	var resp InvokeResponse
	err = retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
			"http://localhost/invoke", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		httpResp, err := c.httpClient.Do(httpReq)
		if err != nil {
			// Connection errors are retryable; the router may still be
			// binding its socket.
			return retry.RetryableError(err)
		}
		defer func() { _ = httpResp.Body.Close() }()

		if httpResp.StatusCode != http.StatusOK {
			return fmt.Errorf("invoke failed: %s", httpResp.Status)
		}
		if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
			return fmt.Errorf("failed to decode invoke response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Shutdown requests a graceful shutdown over the socket.
func (c *Client) Shutdown(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://localhost/shutdown", nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to request shutdown: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("shutdown failed: %s", resp.Status)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://localhost"+path, nil)
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("request to %s failed: %s", path, resp.Status)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response from %s: %w", path, err)
		}
		return nil
	})
}
