package tag

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sync"
	"time"
)

// maxCoverBytes caps downloaded cover images.
const maxCoverBytes = 10 << 20

// httpDoer is the subset of *http.Client used to download covers.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPCoverFetcher downloads cover images, caching them per URL for the
// lifetime of the fetcher.
type HTTPCoverFetcher struct {
	client   httpDoer
	maxBytes int64

	mu    sync.Mutex
	cache map[string]Cover
}

// CoverOption configures an HTTPCoverFetcher.
type CoverOption func(*HTTPCoverFetcher)

// WithHTTPClient sets the HTTP client used for downloads.
func WithHTTPClient(c httpDoer) CoverOption {
	return func(f *HTTPCoverFetcher) {
		f.client = c
	}
}

func withMaxBytes(n int64) CoverOption {
	return func(f *HTTPCoverFetcher) {
		f.maxBytes = n
	}
}

// NewHTTPCoverFetcher creates a fetcher with a 30s timeout client.
func NewHTTPCoverFetcher(opts ...CoverOption) *HTTPCoverFetcher {
	f := &HTTPCoverFetcher{
		client:   &http.Client{Timeout: 30 * time.Second},
		maxBytes: maxCoverBytes,
		cache:    make(map[string]Cover),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the image at url.
func (f *HTTPCoverFetcher) Fetch(ctx context.Context, url string) (Cover, error) {
	f.mu.Lock()
	if c, ok := f.cache[url]; ok {
		f.mu.Unlock()
		return c, nil
	}
	f.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Cover{}, fmt.Errorf("%w: %v", ErrCoverFetch, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return Cover{}, fmt.Errorf("%w: %v", ErrCoverFetch, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Cover{}, fmt.Errorf("%w: %s returned %s", ErrCoverFetch, url, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return Cover{}, fmt.Errorf("%w: %v", ErrCoverFetch, err)
	}
	if int64(len(data)) > f.maxBytes {
		return Cover{}, fmt.Errorf("%w: %s is larger than %d bytes", ErrCoverFetch, url, f.maxBytes)
	}

	c := Cover{Data: data, MIMEType: coverMIME(resp.Header.Get("Content-Type"), data)}
	f.mu.Lock()
	f.cache[url] = c
	f.mu.Unlock()
	return c, nil
}

// coverMIME trusts an image/* Content-Type and sniffs the bytes otherwise.
func coverMIME(header string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(header); err == nil && len(mt) > 6 && mt[:6] == "image/" {
		return mt
	}
	return http.DetectContentType(data)
}
