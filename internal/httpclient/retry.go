package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	maxRetries     = 3
	initialBackoff = 2 * time.Second
	maxBackoff     = 60 * time.Second
)

// retryableStatus reports whether the code may succeed on a later attempt:
// 429, 423, 408 and all 5xx.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusLocked, http.StatusRequestTimeout:
		return true
	}
	return code >= 500 && code < 600
}

// Get fetches url with the bridge User-Agent, retrying transient failures
// with exponential backoff and honoring Retry-After. Used only for catalog
// and guide indexing, never on a latency-sensitive path.
func Get(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if client == nil {
		client = Default()
	}
	var lastErr error
	backoff := initialBackoff
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < maxBackoff {
				backoff *= 2
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", UserAgent)
		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}
		if resp.StatusCode == http.StatusOK {
			return body, nil
		}
		lastErr = fmt.Errorf("%s: %s", url, resp.Status)
		if !retryableStatus(resp.StatusCode) {
			return nil, lastErr
		}
		if wait := retryAfter(resp); wait > 0 {
			backoff = wait
		}
	}
	return nil, fmt.Errorf("get %s: %w", url, lastErr)
}

// retryAfter parses the Retry-After header (seconds or HTTP-date), capped at
// maxBackoff. Returns 0 when absent or unparseable.
func retryAfter(resp *http.Response) time.Duration {
	s := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if s == "" {
		return 0
	}
	if sec, err := strconv.Atoi(s); err == nil && sec > 0 {
		return min(time.Duration(sec)*time.Second, maxBackoff)
	}
	if t, err := http.ParseTime(s); err == nil {
		d := time.Until(t)
		if d <= 0 {
			return initialBackoff
		}
		return min(d, maxBackoff)
	}
	return 0
}
