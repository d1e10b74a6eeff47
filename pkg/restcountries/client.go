// Package restcountries looks countries up on a restcountries v2 compatible service.
package restcountries

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/shpitdev/country-lookup/pkg/fetch"
	"github.com/shpitdev/country-lookup/pkg/pipeline/core"
)

// DefaultBaseURL is the public v2 API.
const DefaultBaseURL = "https://restcountries.com/v2"

// NotFoundLabel annotates failed lookups, for both query shapes.
const NotFoundLabel = "Country not found"

// Country mirrors the restcountries v2 payload fields this module reads. Everything else in
// the payload is ignored.
type Country struct {
	Name       string   `json:"name"`
	Alpha3Code string   `json:"alpha3Code"`
	Region     string   `json:"region"`
	Population int64    `json:"population"`
	Flag       string   `json:"flag"`
	Borders    []string `json:"borders"`
	Languages  []struct {
		Name string `json:"name"`
	} `json:"languages"`
	Currencies []struct {
		Name string `json:"name"`
	} `json:"currencies"`
}

// Record converts the wire payload into a pipeline record.
func (c Country) Record() core.CountryRecord {
	rec := core.CountryRecord{
		Name:       strings.TrimSpace(c.Name),
		Code:       strings.ToUpper(strings.TrimSpace(c.Alpha3Code)),
		Region:     strings.TrimSpace(c.Region),
		Population: c.Population,
		Flag:       strings.TrimSpace(c.Flag),
	}
	if len(c.Languages) > 0 {
		rec.Language = strings.TrimSpace(c.Languages[0].Name)
	}
	if len(c.Currencies) > 0 {
		rec.Currency = strings.TrimSpace(c.Currencies[0].Name)
	}
	if len(c.Borders) > 0 {
		rec.Borders = make([]string, 0, len(c.Borders))
		for _, b := range c.Borders {
			if b = strings.ToUpper(strings.TrimSpace(b)); b != "" {
				rec.Borders = append(rec.Borders, b)
			}
		}
	}
	return rec
}

// Client builds lookup URLs and delegates each request to a Fetcher.
type Client struct {
	baseURL string
	fetcher *fetch.Fetcher
}

// NewClient constructs a client for baseURL (DefaultBaseURL when empty).
func NewClient(baseURL string, fetcher *fetch.Fetcher) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if fetcher == nil {
		fetcher = fetch.New()
	}
	return &Client{baseURL: base, fetcher: fetcher}, nil
}

func parseBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = DefaultBaseURL
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse restcountries base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("restcountries base URL must include a host (got %q)", raw)
	}
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimRight(u.String(), "/"), nil
}

// NameURL is the "lookup by name" URL for name.
func (c *Client) NameURL(name string) string {
	return c.baseURL + "/name/" + url.PathEscape(strings.TrimSpace(name))
}

// CodeURL is the "lookup by code" URL for code.
func (c *Client) CodeURL(code string) string {
	return c.baseURL + "/alpha/" + url.PathEscape(strings.TrimSpace(code))
}

// ByName returns every record matching name, in remote order.
func (c *Client) ByName(ctx context.Context, name string) ([]core.CountryRecord, error) {
	var raw []Country
	if err := c.fetcher.FetchJSON(ctx, c.NameURL(name), NotFoundLabel, &raw); err != nil {
		return nil, err
	}
	out := make([]core.CountryRecord, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.Record())
	}
	return out, nil
}

// ByCode returns the single record identified by code.
func (c *Client) ByCode(ctx context.Context, code string) (core.CountryRecord, error) {
	var raw Country
	if err := c.fetcher.FetchJSON(ctx, c.CodeURL(code), NotFoundLabel, &raw); err != nil {
		return core.CountryRecord{}, err
	}
	return raw.Record(), nil
}
