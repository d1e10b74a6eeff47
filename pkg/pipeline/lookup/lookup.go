// Package lookup runs the dependent country lookups that make up one pipeline run.
package lookup

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shpitdev/country-lookup/pkg/pipeline/core"
	"github.com/shpitdev/country-lookup/pkg/pipeline/redact"
)

// CountrySource answers the two query shapes of the remote lookup service.
type CountrySource interface {
	ByName(ctx context.Context, name string) ([]core.CountryRecord, error)
	ByCode(ctx context.Context, code string) (core.CountryRecord, error)
}

// ReverseGeocoder maps a position to a country name.
type ReverseGeocoder interface {
	CountryAt(ctx context.Context, pos core.Position) (string, error)
}

// Pipeline orchestrates the stages of a run. Stages run strictly one after another; each
// stage's input is the previous stage's output. Nothing is retried.
type Pipeline struct {
	Countries CountrySource
	Geocoder  ReverseGeocoder

	// Logf receives one line per stage. Optional.
	Logf func(format string, args ...any)
}

// RunPrimaryThenSecondary looks name up, then looks up its first neighbor.
//
// A primary without neighbors is a success with no secondary. A failed neighbor lookup fails
// the whole run even though the primary record was obtained.
func (p *Pipeline) RunPrimaryThenSecondary(ctx context.Context, name string) core.Outcome {
	primary, err := p.primary(ctx, name)
	if err != nil {
		return core.Failed(err)
	}

	if len(primary.Borders) == 0 {
		p.logf("no neighbours for %q; stopping after primary", primary.Name)
		return core.Succeeded(primary, nil)
	}

	req := core.LookupRequest{Target: primary.Borders[0], Purpose: core.PurposeSecondary}
	start := time.Now()
	secondary, err := p.Countries.ByCode(ctx, req.Target)
	if err != nil {
		p.logf("lookup %s failed in %s: %s", req, since(start), redact.Secrets(err.Error()))
		return core.Failed(err)
	}
	p.logf("lookup %s ok in %s: %q", req, since(start), secondary.Name)
	return core.Succeeded(primary, &secondary)
}

// RunFromPosition reverse-geocodes pos and looks the resulting country up. It never attempts a
// neighbor lookup.
func (p *Pipeline) RunFromPosition(ctx context.Context, pos core.Position) core.Outcome {
	if p.Geocoder == nil {
		return core.Failed(errors.New("reverse geocoding is not configured"))
	}

	start := time.Now()
	country, err := p.Geocoder.CountryAt(ctx, pos)
	if err != nil {
		p.logf("reverse geocode %s failed in %s: %s", pos, since(start), redact.Secrets(err.Error()))
		return core.Failed(err)
	}
	p.logf("reverse geocode %s ok in %s: %q", pos, since(start), country)

	primary, err := p.primary(ctx, country)
	if err != nil {
		return core.Failed(err)
	}
	return core.Succeeded(primary, nil)
}

// primary resolves name and takes the first match. Ambiguous names are not disambiguated.
func (p *Pipeline) primary(ctx context.Context, name string) (core.CountryRecord, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.CountryRecord{}, errors.New("empty country name")
	}
	if p.Countries == nil {
		return core.CountryRecord{}, errors.New("country lookup is not configured")
	}

	req := core.LookupRequest{Target: name, Purpose: core.PurposePrimary}
	start := time.Now()
	matches, err := p.Countries.ByName(ctx, req.Target)
	if err != nil {
		p.logf("lookup %s failed in %s: %s", req, since(start), redact.Secrets(err.Error()))
		return core.CountryRecord{}, err
	}
	if len(matches) == 0 {
		p.logf("lookup %s returned no records", req)
		return core.CountryRecord{}, &core.MissingDependencyError{Stage: name, What: "country"}
	}
	p.logf("lookup %s ok in %s: %d match(es), using %q", req, since(start), len(matches), matches[0].Name)
	return matches[0], nil
}

func (p *Pipeline) logf(format string, args ...any) {
	if p.Logf != nil {
		p.Logf(format, args...)
	}
}

func since(t time.Time) time.Duration {
	return time.Since(t).Round(time.Millisecond)
}
