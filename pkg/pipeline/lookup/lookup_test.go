package lookup_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/shpitdev/country-lookup/pkg/fetch"
	"github.com/shpitdev/country-lookup/pkg/pipeline/core"
	"github.com/shpitdev/country-lookup/pkg/pipeline/lookup"
)

var (
	france = core.CountryRecord{
		Name:       "France",
		Code:       "FRA",
		Region:     "Europe",
		Population: 67391582,
		Language:   "French",
		Currency:   "Euro",
		Borders:    []string{"ESP", "DEU", "ITA", "BEL", "LUX", "MCO", "AND", "CHE"},
	}
	spain   = core.CountryRecord{Name: "Spain", Code: "ESP", Region: "Europe", Borders: []string{"AND", "FRA", "GIB", "PRT", "MAR"}}
	iceland = core.CountryRecord{Name: "Iceland", Code: "ISL", Region: "Europe"}
	italy   = core.CountryRecord{Name: "Italy", Code: "ITA", Region: "Europe", Borders: []string{"AUT", "FRA", "SMR", "SVN", "CHE", "VAT"}}
	austria = core.CountryRecord{Name: "Austria", Code: "AUT", Region: "Europe"}
)

// stubCountries is a deterministic CountrySource that counts calls.
type stubCountries struct {
	mu      sync.Mutex
	byName  map[string][]core.CountryRecord
	byCode  map[string]core.CountryRecord
	failFor map[string]error

	nameCalls []string
	codeCalls []string
}

func newStub() *stubCountries {
	return &stubCountries{
		byName: map[string][]core.CountryRecord{
			"france":  {france},
			"iceland": {iceland},
			"italy":   {italy},
			"spain":   {spain},
		},
		byCode: map[string]core.CountryRecord{
			"ESP": spain,
			"AUT": austria,
		},
		failFor: map[string]error{},
	}
}

func (s *stubCountries) ByName(_ context.Context, name string) ([]core.CountryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nameCalls = append(s.nameCalls, name)
	if err := s.failFor[name]; err != nil {
		return nil, err
	}
	recs, ok := s.byName[strings.ToLower(name)]
	if !ok {
		return nil, &fetch.RemoteError{Label: "Country not found", StatusCode: 404}
	}
	return recs, nil
}

func (s *stubCountries) ByCode(_ context.Context, code string) (core.CountryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codeCalls = append(s.codeCalls, code)
	if err := s.failFor[code]; err != nil {
		return core.CountryRecord{}, err
	}
	rec, ok := s.byCode[code]
	if !ok {
		return core.CountryRecord{}, &fetch.RemoteError{Label: "Country not found", StatusCode: 404}
	}
	return rec, nil
}

type stubGeocoder struct {
	country string
	err     error
	calls   int
}

func (g *stubGeocoder) CountryAt(_ context.Context, _ core.Position) (string, error) {
	g.calls++
	return g.country, g.err
}

func TestRunPrimaryThenSecondary_FetchesFirstNeighbourOnly(t *testing.T) {
	t.Parallel()

	stub := newStub()
	p := &lookup.Pipeline{Countries: stub}

	out := p.RunPrimaryThenSecondary(context.Background(), "france")
	if !out.OK() {
		t.Fatalf("unexpected failure: %s", out.Reason())
	}
	if out.Primary.Name != "France" {
		t.Fatalf("primary = %#v", out.Primary)
	}
	if out.Secondary == nil || out.Secondary.Name != "Spain" {
		t.Fatalf("secondary = %#v", out.Secondary)
	}
	if !reflect.DeepEqual(stub.codeCalls, []string{"ESP"}) {
		t.Fatalf("expected a single neighbour lookup for ESP, got %v", stub.codeCalls)
	}
}

func TestRunPrimaryThenSecondary_NoNeighboursIsSuccess(t *testing.T) {
	t.Parallel()

	stub := newStub()
	stub.byName["empty"] = []core.CountryRecord{{Name: "Nauru", Borders: []string{}}}
	p := &lookup.Pipeline{Countries: stub}

	for _, name := range []string{"iceland", "empty"} {
		out := p.RunPrimaryThenSecondary(context.Background(), name)
		if !out.OK() {
			t.Fatalf("%s: unexpected failure: %s", name, out.Reason())
		}
		if out.Secondary != nil {
			t.Fatalf("%s: expected no secondary, got %#v", name, out.Secondary)
		}
	}
	if len(stub.codeCalls) != 0 {
		t.Fatalf("expected no neighbour lookups, got %v", stub.codeCalls)
	}
}

func TestRunPrimaryThenSecondary_UnknownCountry(t *testing.T) {
	t.Parallel()

	stub := newStub()
	p := &lookup.Pipeline{Countries: stub}

	out := p.RunPrimaryThenSecondary(context.Background(), "atlantis")
	if out.OK() {
		t.Fatalf("expected failure")
	}
	if out.Reason() != "Country not found (404)" {
		t.Fatalf("reason = %q", out.Reason())
	}
	var re *fetch.RemoteError
	if !errors.As(out.Err(), &re) {
		t.Fatalf("expected *RemoteError cause, got %T", out.Err())
	}
	if len(stub.nameCalls) != 1 || len(stub.codeCalls) != 0 {
		t.Fatalf("calls: name=%v code=%v", stub.nameCalls, stub.codeCalls)
	}
}

func TestRunPrimaryThenSecondary_SecondaryFailureFailsRun(t *testing.T) {
	t.Parallel()

	stub := newStub()
	stub.failFor["ESP"] = &fetch.RemoteError{Label: "Country not found", StatusCode: 500}
	p := &lookup.Pipeline{Countries: stub}

	out := p.RunPrimaryThenSecondary(context.Background(), "france")
	if out.OK() {
		t.Fatalf("expected failure when neighbour lookup fails")
	}
	if out.Reason() != "Country not found (500)" {
		t.Fatalf("reason = %q", out.Reason())
	}
	if out.Primary.Name != "" {
		t.Fatalf("failure outcome must not carry a primary record: %#v", out.Primary)
	}
}

func TestRunPrimaryThenSecondary_EmptyResultAndBlankName(t *testing.T) {
	t.Parallel()

	stub := newStub()
	stub.byName["nothing"] = []core.CountryRecord{}
	p := &lookup.Pipeline{Countries: stub}

	out := p.RunPrimaryThenSecondary(context.Background(), "nothing")
	var md *core.MissingDependencyError
	if out.OK() || !errors.As(out.Err(), &md) {
		t.Fatalf("expected missing dependency failure, got %#v", out)
	}

	calls := len(stub.nameCalls)
	out = p.RunPrimaryThenSecondary(context.Background(), "   ")
	if out.OK() {
		t.Fatalf("expected failure for blank name")
	}
	if len(stub.nameCalls) != calls {
		t.Fatalf("blank name must not reach the remote service")
	}
}

func TestRunPrimaryThenSecondary_Idempotent(t *testing.T) {
	t.Parallel()

	p := &lookup.Pipeline{Countries: newStub()}
	a := p.RunPrimaryThenSecondary(context.Background(), "Italy")
	b := p.RunPrimaryThenSecondary(context.Background(), "Italy")
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("outcomes differ:\n%#v\n%#v", a, b)
	}
	if a.Secondary == nil || a.Secondary.Name != "Austria" {
		t.Fatalf("unexpected secondary: %#v", a.Secondary)
	}
}

func TestRunFromPosition(t *testing.T) {
	t.Parallel()

	stub := newStub()
	geo := &stubGeocoder{country: "France"}
	var lines []string
	p := &lookup.Pipeline{Countries: stub, Geocoder: geo, Logf: func(format string, _ ...any) {
		lines = append(lines, format)
	}}

	out := p.RunFromPosition(context.Background(), core.Position{Latitude: 48.85, Longitude: 2.35})
	if !out.OK() {
		t.Fatalf("unexpected failure: %s", out.Reason())
	}
	if out.Primary.Name != "France" || out.Secondary != nil {
		t.Fatalf("unexpected outcome: %#v", out)
	}
	if len(stub.codeCalls) != 0 {
		t.Fatalf("position entry must not look up neighbours, got %v", stub.codeCalls)
	}
	if len(lines) == 0 {
		t.Fatalf("expected stage logging")
	}
}

func TestRunFromPosition_ThrottledSkipsCountryLookup(t *testing.T) {
	t.Parallel()

	stub := newStub()
	geo := &stubGeocoder{err: &core.ThrottledError{Provider: "geocode.xyz"}}
	p := &lookup.Pipeline{Countries: stub, Geocoder: geo}

	out := p.RunFromPosition(context.Background(), core.Position{})
	if out.OK() {
		t.Fatalf("expected failure")
	}
	if !strings.HasPrefix(out.Reason(), "Throttled") {
		t.Fatalf("reason = %q", out.Reason())
	}
	if len(stub.nameCalls) != 0 || len(stub.codeCalls) != 0 {
		t.Fatalf("expected zero country lookups, got name=%v code=%v", stub.nameCalls, stub.codeCalls)
	}
}

func TestRunFromPosition_NoGeocoder(t *testing.T) {
	t.Parallel()

	out := (&lookup.Pipeline{Countries: newStub()}).RunFromPosition(context.Background(), core.Position{})
	if out.OK() {
		t.Fatalf("expected failure without geocoder")
	}
}
