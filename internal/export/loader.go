package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	// Registered decoders.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// maxImageBytes caps a single image download.
const maxImageBytes = 20 << 20

// ImageLoader fetches and decodes an image referenced by a document.
type ImageLoader interface {
	Load(ctx context.Context, ref string) (image.Image, error)
}

// AssetSource opens uploaded assets by file name.
type AssetSource interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// Loader resolves data URIs, library assets (/assets/<file>) and http(s)
// URLs.
type Loader struct {
	Client *http.Client
	Assets AssetSource
}

// NewLoader returns a Loader whose remote fetches time out after timeout.
// assets may be nil.
func NewLoader(timeout time.Duration, assets AssetSource) *Loader {
	return &Loader{Client: &http.Client{Timeout: timeout}, Assets: assets}
}

// Load implements ImageLoader.
func (l *Loader) Load(ctx context.Context, ref string) (image.Image, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return nil, errors.New("export: empty image reference")
	case strings.HasPrefix(ref, "data:"):
		data, err := decodeDataURI(ref)
		if err != nil {
			return nil, err
		}
		return decode(bytes.NewReader(data), ref)
	case strings.HasPrefix(ref, "/assets/"):
		if l.Assets == nil {
			return nil, fmt.Errorf("export: no asset source for %s", ref)
		}
		rc, err := l.Assets.Open(ctx, strings.TrimPrefix(ref, "/assets/"))
		if err != nil {
			return nil, fmt.Errorf("export: open %s: %w", ref, err)
		}
		defer rc.Close()
		return decode(io.LimitReader(rc, maxImageBytes), ref)
	}

	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("export: unsupported image reference %q", ref)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("export: fetch %s: %w", ref, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("export: fetch %s: status %d", ref, resp.StatusCode)
	}
	return decode(io.LimitReader(resp.Body, maxImageBytes), ref)
}

func decode(r io.Reader, ref string) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("export: decode %s: %w", shortRef(ref), err)
	}
	return img, nil
}

// decodeDataURI returns the payload of a data: URI.
func decodeDataURI(ref string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, errors.New("export: malformed data URI")
	}
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("export: data URI: %w", err)
		}
		return data, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("export: data URI: %w", err)
	}
	return []byte(s), nil
}

func shortRef(ref string) string {
	if len(ref) > 64 {
		return ref[:64] + "..."
	}
	return ref
}
