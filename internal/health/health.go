// Package health probes upstream provider reachability for the /healthz
// endpoint.
package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iptvbridge/iptv-bridge/internal/httpclient"
)

// CheckProvider fetches the provider URL and reports whether it answers with
// HTTP 200. Some providers reject HEAD, so a GET is issued and the body
// drained immediately.
func CheckProvider(ctx context.Context, url string) error {
	if url == "" {
		return fmt.Errorf("no provider URL configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", httpclient.UserAgent)
	resp, err := httpclient.WithTimeout(15 * time.Second).Do(req)
	if err != nil {
		return fmt.Errorf("provider unreachable: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider returned HTTP %d", resp.StatusCode)
	}
	return nil
}
