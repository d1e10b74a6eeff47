package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/shpitdev/country-lookup/pkg/mockcountries"
)

func main() {
	addr := defaultString("MOCK_COUNTRIES_ADDR", ":8080")
	fixturesPath := defaultString("MOCK_COUNTRIES_FIXTURES", "")
	throttle := defaultString("MOCK_COUNTRIES_THROTTLE", "") == "true"

	fs := flag.NewFlagSet("mock-countries", flag.ExitOnError)
	fs.StringVar(&addr, "addr", addr, "Listen address")
	fs.StringVar(&fixturesPath, "fixtures", fixturesPath, "YAML fixture file; empty serves the built-in dataset (env: MOCK_COUNTRIES_FIXTURES)")
	fs.BoolVar(&throttle, "throttle", throttle, "Answer every reverse-geocoding request with the throttling sentinel (env: MOCK_COUNTRIES_THROTTLE)")
	_ = fs.Parse(os.Args[1:])

	fixtures := mockcountries.DefaultFixtures()
	if fixturesPath != "" {
		loaded, err := mockcountries.LoadFixtures(fixturesPath)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "fixtures error: %v\n", err)
			os.Exit(2)
		}
		fixtures = loaded
	}

	srv := mockcountries.New(fixtures)
	srv.Throttle(throttle)

	_, _ = fmt.Fprintf(os.Stdout, "mock-countries listening on %s (countries=%d places=%d)\n", addr, len(fixtures.Countries), len(fixtures.Places))
	_, _ = fmt.Fprintf(os.Stdout, "  RESTCOUNTRIES_URL=http://localhost%s%s GEOCODE_URL=http://localhost%s%s IPGEO_URL=http://localhost%s%s\n",
		addr, mockcountries.RestCountriesPrefix, addr, mockcountries.GeocodePrefix, addr, mockcountries.IPGeoPath)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func defaultString(envVar string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(envVar))
	if v == "" {
		return fallback
	}
	return v
}
