package htmlimport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ImageProber checks that an image URL can be loaded.
type ImageProber interface {
	Probe(ctx context.Context, url string) error
}

// HTTPProber fetches the first bytes of an image and checks they decode as
// an image type.
type HTTPProber struct {
	Client *http.Client
}

// NewHTTPProber returns a prober using an HTTP client with the given timeout.
func NewHTTPProber(timeout time.Duration) *HTTPProber {
	return &HTTPProber{Client: &http.Client{Timeout: timeout}}
}

// Probe implements ImageProber.
func (p *HTTPProber) Probe(ctx context.Context, url string) error {
	if strings.HasPrefix(url, "data:") {
		if strings.HasPrefix(url, "data:image/") {
			return nil
		}
		return fmt.Errorf("probe: data URI is not an image")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("probe %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("probe %s: status %d", url, resp.StatusCode)
	}
	head := make([]byte, 512)
	n, _ := io.ReadFull(resp.Body, head)
	ct := http.DetectContentType(head[:n])
	if !strings.HasPrefix(ct, "image/") && !strings.HasPrefix(resp.Header.Get("Content-Type"), "image/") {
		return fmt.Errorf("probe %s: not an image (%s)", url, ct)
	}
	return nil
}

// probeWithRetry tries once plus the given number of retries, waiting delay
// between attempts.
func probeWithRetry(ctx context.Context, p ImageProber, url string, retries int, delay time.Duration) error {
	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
		if err = p.Probe(ctx, url); err == nil {
			return nil
		}
	}
	return err
}
