package runner

import (
	"context"
	"io"
	"net/http"
	"time"
)

const (
	DefaultUserAgent    = "Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0"
	DefaultProbeTimeout = 30 * time.Second
)

// AvailabilityProbe reports whether a site answers at all
type AvailabilityProbe func(ctx context.Context, url string) bool

// HTTPProbe treats any HTTP response, whatever its status, as available
func HTTPProbe(client *http.Client) AvailabilityProbe {
	if client == nil {
		client = &http.Client{Timeout: DefaultProbeTimeout}
	}
	return func(ctx context.Context, url string) bool {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return false
		}
		req.Header.Set("User-Agent", DefaultUserAgent)

		resp, err := client.Do(req)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
		return true
	}
}
