package assets

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/starford/menuboard/internal/apperr"
)

// Fetcher downloads remote images for URL uploads.
type Fetcher struct {
	Client *http.Client
	// AllowLoopback disables the loopback block; tests point it at httptest.
	AllowLoopback bool
}

// NewFetcher returns a fetcher with the given request timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	f := &Fetcher{}
	f.Client = &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects (max 5)")
			}
			return f.checkBlockedHost(req.URL.Hostname())
		},
	}
	return f
}

// Fetch returns the bytes behind rawURL, which may be a base64 data URI or an
// http(s) URL, and the extension implied by its media type.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	if strings.HasPrefix(rawURL, "data:") {
		return decodeDataURI(rawURL)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("%w: invalid URL: %v", apperr.ErrInvalid, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, "", fmt.Errorf("%w: unsupported scheme: %s (only http/https)", apperr.ErrInvalid, parsed.Scheme)
	}
	if err := f.checkBlockedHost(parsed.Hostname()); err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body failed: %w", err)
	}
	if len(data) > MaxSize {
		return nil, "", fmt.Errorf("%w: file too large: exceeds %d bytes", apperr.ErrInvalid, MaxSize)
	}

	ct := resp.Header.Get("Content-Type")
	return data, mimeToExt[strings.Split(ct, ";")[0]], nil
}

// checkBlockedHost rejects loopback and cloud metadata addresses.
func (f *Fetcher) checkBlockedHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("%w: blocked host: %s", apperr.ErrInvalid, host)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, lookupErr := net.LookupIP(host)
		if lookupErr != nil || len(ips) == 0 {
			return nil //nolint:nilerr // let http.Client handle DNS failures
		}
		ip = ips[0]
	}

	if ip.IsLoopback() && !f.AllowLoopback {
		return fmt.Errorf("%w: blocked host: loopback address %s", apperr.ErrInvalid, host)
	}
	if ip.Equal(net.ParseIP("169.254.169.254")) {
		return fmt.Errorf("%w: blocked host: cloud metadata address %s", apperr.ErrInvalid, host)
	}
	return nil
}
