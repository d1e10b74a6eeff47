// Package fetch performs single-attempt JSON GET requests and classifies their failures.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

// DefaultLabel annotates failures when the caller does not supply a label.
const DefaultLabel = "Something went wrong"

// Fetcher issues one GET per call. It never caches and never retries.
type Fetcher struct {
	http    *http.Client
	ua      string
	limiter *rate.Limiter
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets the http.Client used for requests (tests, proxies, custom timeouts).
func WithHTTPClient(h *http.Client) Option {
	return func(f *Fetcher) {
		if h != nil {
			f.http = h
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.ua = strings.TrimSpace(ua) }
}

// WithLimiter paces requests: each call waits for a token before its single attempt.
func WithLimiter(l *rate.Limiter) Option {
	return func(f *Fetcher) { f.limiter = l }
}

// New constructs a Fetcher. The default client has no timeout beyond the transport defaults.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		http: &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()},
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// FetchJSON GETs rawURL and decodes a 2xx body into out.
//
// Exactly one outcome is produced: out is populated and nil is returned, or one of
// *NetworkError, *RemoteError, *MalformedResponseError is returned.
func (f *Fetcher) FetchJSON(ctx context.Context, rawURL, label string, out any) error {
	if strings.TrimSpace(label) == "" {
		label = DefaultLabel
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return &NetworkError{Label: label, URL: rawURL, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &NetworkError{Label: label, URL: rawURL, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if f.ua != "" {
		req.Header.Set("User-Agent", f.ua)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return &NetworkError{Label: label, URL: rawURL, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		// Drain so the connection can be reused; the body itself is ignored.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return &RemoteError{Label: label, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Label: label, URL: rawURL, Err: err}
	}
	if err := json.Unmarshal(b, out); err != nil {
		return &MalformedResponseError{Label: label, Err: err}
	}
	return nil
}

// StatusCode returns the HTTP status carried by a *RemoteError anywhere in err's chain, or 0.
func StatusCode(err error) int {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}
