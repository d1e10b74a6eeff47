// Package geocode reverse-geocodes a position to a country name using geocode.xyz.
package geocode

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shpitdev/country-lookup/pkg/fetch"
	"github.com/shpitdev/country-lookup/pkg/pipeline/core"
)

const (
	// ThrottledSentinel is what geocode.xyz puts in "distance" instead of data when rate limiting.
	ThrottledSentinel = "Throttled! See geocode.xyz/pricing"

	// NotFoundLabel annotates failed reverse lookups.
	NotFoundLabel = "Location not found"

	provider = "geocode.xyz"
)

// Response is the subset of the geocode.xyz JSON payload this package reads.
type Response struct {
	Country  string `json:"country"`
	City     string `json:"city"`
	Distance any    `json:"distance"`
	Error    *struct {
		Description string `json:"description"`
	} `json:"error"`
}

// Throttled reports whether the payload is the provider's throttling sentinel.
func (r Response) Throttled() bool {
	s, ok := r.Distance.(string)
	if !ok {
		return false
	}
	s = strings.TrimSpace(s)
	return s == ThrottledSentinel || strings.HasPrefix(s, "Throttled")
}

// Client calls geocode.xyz through a Fetcher. The Fetcher should carry a rate limiter matching
// the account's plan; the free tier allows about one request per second.
type Client struct {
	baseURL string
	auth    string
	fetcher *fetch.Fetcher
}

// NewClient constructs a client. auth is optional.
func NewClient(baseURL, auth string, fetcher *fetch.Fetcher) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("geocode base URL is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse geocode base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("geocode base URL must include a host (got %q)", baseURL)
	}
	if fetcher == nil {
		fetcher = fetch.New()
	}
	return &Client{baseURL: baseURL, auth: strings.TrimSpace(auth), fetcher: fetcher}, nil
}

// URL is the reverse-geocoding URL for pos.
func (c *Client) URL(pos core.Position) string {
	q := url.Values{}
	q.Set("geoit", "JSON")
	if c.auth != "" {
		q.Set("auth", c.auth)
	}
	lat := strconv.FormatFloat(pos.Latitude, 'f', -1, 64)
	lng := strconv.FormatFloat(pos.Longitude, 'f', -1, 64)
	return c.baseURL + "/" + lat + "," + lng + "?" + q.Encode()
}

// CountryAt returns the name of the country containing pos.
func (c *Client) CountryAt(ctx context.Context, pos core.Position) (string, error) {
	var resp Response
	if err := c.fetcher.FetchJSON(ctx, c.URL(pos), NotFoundLabel, &resp); err != nil {
		if fetch.StatusCode(err) == http.StatusTooManyRequests {
			return "", &core.ThrottledError{Provider: provider}
		}
		return "", err
	}
	if resp.Throttled() {
		return "", &core.ThrottledError{Provider: provider}
	}
	country := strings.TrimSpace(resp.Country)
	if country == "" {
		return "", &core.MissingDependencyError{Stage: "position " + pos.String(), What: "country"}
	}
	return country, nil
}
