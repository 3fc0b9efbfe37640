// Package dwdhttp implements conditional GET/HEAD revalidation against
// the upstream open-data endpoints, modeled on the teacher's plain
// *http.Client field (api_config.go) and its metricsTransport wrapper
// (middleware.go), generalised here into an explicit ETag contract
// instead of an implicit RoundTripper side effect.
package dwdhttp

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// MaxBodyBytes bounds how much of a response body is read into memory.
// The forecast archive (KMZ) is the largest upstream payload; 256 MiB
// comfortably covers it with headroom.
const MaxBodyBytes = 256 << 20

// Client wraps an *http.Client with the revalidation contract used by
// every fetch worker (C1).
type Client struct {
	HTTP *http.Client
}

// New returns a Client with the connect/total timeouts recommended for
// the orchestrator's workers: a stuck upstream must not block the whole
// refresh cycle indefinitely.
func New() *Client {
	dialer := &net.Dialer{Timeout: 30 * time.Second}
	return &Client{
		HTTP: &http.Client{
			Timeout:   120 * time.Second,
			Transport: &http.Transport{DialContext: dialer.DialContext},
		},
	}
}

// NeedsFetch returns true if prevETag is empty, or if a HEAD request
// does not confirm the resource is unchanged. Any network error, any
// non-2xx status, or a missing ETag header is treated as "needs fetch"
// — the contract fails open so a flaky HEAD never starves a refresh.
func (c *Client) NeedsFetch(url, prevETag string) bool {
	if prevETag == "" {
		return true
	}
	req, err := http.NewRequest(http.MethodHead, url, nil)
	if err != nil {
		return true
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return true
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return true
	}
	etag := resp.Header.Get("ETag")
	return etag == "" || etag != prevETag
}

// Fetch performs a GET, reads the body up to MaxBodyBytes, and returns
// the bytes along with the response's ETag (empty if absent).
func (c *Client) Fetch(url string) ([]byte, string, error) {
	resp, err := c.HTTP.Get(url)
	if err != nil {
		return nil, "", fmt.Errorf("dwdhttp: get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("dwdhttp: get %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("dwdhttp: read body %s: %w", url, err)
	}
	if len(body) > MaxBodyBytes {
		return nil, "", fmt.Errorf("dwdhttp: get %s: body exceeds %d bytes", url, MaxBodyBytes)
	}

	return body, resp.Header.Get("ETag"), nil
}
