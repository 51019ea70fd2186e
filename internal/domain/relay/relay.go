// Package relay forwards a second launch's arguments to the host instance
// that is already running, so the platform's single-instance contract holds.
package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/thehaigo/desktop/internal/domain/env"
)

// forwardRequest mirrors the control surface's event publish body.
type forwardRequest struct {
	Kind string   `json:"kind"`
	Args []string `json:"args"`
}

// Client talks to a peer host instance over its local control surface.
type Client struct {
	http *resty.Client
}

// New creates a relay client for the peer at baseURL. Timeouts are tight;
// a second launch either finds a live peer quickly or starts up itself.
func New(baseURL string) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = 500 * time.Millisecond
	retryClient.Logger = nil

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(2 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(500 * time.Millisecond).
		SetHeader("User-Agent", "desktop-relay/1.0")
	httpClient.SetTransport(retryClient.HTTPClient.Transport)

	return &Client{http: httpClient}
}

// Ping reports whether a live peer answers on the health endpoint.
func (c *Client) Ping(ctx context.Context) bool {
	resp, err := c.http.R().SetContext(ctx).Get("/health")
	return err == nil && resp.IsSuccess()
}

// Forward hands an OS event to the peer for publication.
func (c *Client) Forward(ctx context.Context, kind env.Kind, args []string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(forwardRequest{Kind: string(kind), Args: args}).
		Post("/events")
	if err != nil {
		return fmt.Errorf("forward %s: %w", kind, err)
	}
	if resp.IsError() {
		return fmt.Errorf("forward %s: peer returned %s", kind, resp.Status())
	}
	return nil
}
