// Package fetch provides the cached, rate-limited clients for the upstream
// pricing source: the bulk listing snapshot and the batched sales history.
package fetch

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// gatewayClass reports whether a response is the transient gateway-class
// failure that warrants the single sales retry.
func gatewayClass(resp *http.Response) bool {
	if resp == nil {
		return false
	}
	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// newSalesClient builds an HTTP client that retries exactly once, after a
// fixed backoff, and only for gateway-class responses. Every other outcome is
// returned to the caller untouched.
func newSalesClient(timeout, retryBackoff time.Duration) *http.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 1
	c.Logger = nil
	c.HTTPClient.Timeout = timeout
	c.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			return false, err
		}
		return gatewayClass(resp), nil
	}
	c.Backoff = func(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
		return retryBackoff
	}
	return c.StandardClient()
}

// newSnapshotClient builds the bulk snapshot client. The snapshot call is
// never retried; a failed refresh is served as an empty result instead.
func newSnapshotClient(timeout time.Duration) *http.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 0
	c.Logger = nil
	c.HTTPClient.Timeout = timeout
	return c.StandardClient()
}
