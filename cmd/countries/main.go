package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/shpitdev/country-lookup/internal/app"
	"github.com/shpitdev/country-lookup/pkg/endpoints"
	"github.com/shpitdev/country-lookup/pkg/geolocate"
	"github.com/shpitdev/country-lookup/pkg/pipeline/core"
	"github.com/shpitdev/country-lookup/pkg/pipeline/present"
	"github.com/shpitdev/country-lookup/pkg/pipeline/redact"
	"github.com/shpitdev/country-lookup/pkg/pipeline/trigger"
	"github.com/shpitdev/country-lookup/pkg/pipeline/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	var code int
	switch os.Args[1] {
	case "help", "-h", "--help":
		usage(os.Stdout)
		return
	case "lookup":
		code = runLookup(ctx, os.Args[2:])
	case "whereami":
		code = runWhereAmI(ctx, os.Args[2:])
	case "batch":
		code = runBatch(ctx, os.Args[2:])
	default:
		_, _ = fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage(os.Stderr)
		code = 2
	}
	stop()
	os.Exit(code)
}

// clientConfig is the configuration shared by every command.
type clientConfig struct {
	Endpoints      endpoints.Env
	GeocodeRPS     float64
	RequestTimeout time.Duration
	Format         string
	Overlap        string
}

func loadClientConfigFromEnv() (clientConfig, error) {
	env, err := endpoints.LoadEnv()
	if err != nil {
		return clientConfig{}, err
	}
	geocodeRPS, err := envFloat("GEOCODE_RPS", 1)
	if err != nil {
		return clientConfig{}, err
	}
	requestTimeout, err := envDuration("REQUEST_TIMEOUT", 15*time.Second)
	if err != nil {
		return clientConfig{}, err
	}
	return clientConfig{
		Endpoints:      env,
		GeocodeRPS:     geocodeRPS,
		RequestTimeout: requestTimeout,
		Format:         envString("OUTPUT_FORMAT", string(present.FormatText)),
		Overlap:        envString("OVERLAP_POLICY", trigger.OverlapIndependent.String()),
	}, nil
}

func newApp(c clientConfig) (*app.App, error) {
	return app.New(app.Config{
		Endpoints:      c.Endpoints,
		GeocodeRPS:     c.GeocodeRPS,
		RequestTimeout: c.RequestTimeout,
	})
}

func runLookup(ctx context.Context, args []string) int {
	cfg, err := loadClientConfigFromEnv()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", redact.Secrets(err.Error()))
		return 2
	}

	fs := flag.NewFlagSet("lookup", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	c := &cfg
	c.register(fs)
	fs.StringVar(&c.Overlap, "overlap", c.Overlap, "Overlapping lookups: independent, first-wins or last-wins (env: OVERLAP_POLICY)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	names := fs.Args()
	if len(names) == 0 {
		_, _ = fmt.Fprintln(os.Stderr, "lookup requires at least one country name")
		return 2
	}
	policy, err := trigger.ParseOverlapPolicy(c.Overlap)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 2
	}

	a, err := newApp(cfg)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", redact.Secrets(err.Error()))
		return 2
	}
	display := present.NewDisplay(present.ParseFormat(c.Format), os.Stdout)
	return exitCode(a.Lookup(ctx, names, display, policy)...)
}

func runWhereAmI(ctx context.Context, args []string) int {
	cfg, err := loadClientConfigFromEnv()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", redact.Secrets(err.Error()))
		return 2
	}

	fs := flag.NewFlagSet("whereami", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	c := &cfg
	c.register(fs)
	fs.StringVar(&c.Endpoints.Services.IPGeo, "ip-url", c.Endpoints.Services.IPGeo, "IP geolocation URL used by --ip (env: IPGEO_URL)")
	lat := fs.Float64("lat", 0, "Latitude in degrees")
	lng := fs.Float64("lng", 0, "Longitude in degrees")
	useIP := fs.Bool("ip", false, "Approximate the position from the public IP address")
	deny := fs.Bool("deny", false, "Behave as if location permission was denied")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	haveCoords := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "lat" || f.Name == "lng" {
			haveCoords = true
		}
	})
	if !*deny && !*useIP && !haveCoords {
		_, _ = fmt.Fprintln(os.Stderr, "whereami requires --lat/--lng, --ip or --deny")
		return 2
	}

	a, err := newApp(cfg)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", redact.Secrets(err.Error()))
		return 2
	}

	var sensor geolocate.Sensor
	switch {
	case *deny:
		sensor = geolocate.Denied{}
	case *useIP:
		sensor = a.IPSensor()
	default:
		sensor = geolocate.Static{Position: core.Position{Latitude: *lat, Longitude: *lng}}
	}
	display := present.NewDisplay(present.ParseFormat(c.Format), os.Stdout)
	return exitCode(a.WhereAmI(ctx, sensor, display))
}

func runBatch(ctx context.Context, args []string) int {
	cfg, err := loadClientConfigFromEnv()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", redact.Secrets(err.Error()))
		return 2
	}
	opts, err := loadWorkerOptionsFromEnv()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", redact.Secrets(err.Error()))
		return 2
	}

	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	c := &cfg
	c.register(fs)
	var inputPath, outputPath string
	var failFast bool
	fs.StringVar(&inputPath, "input", "", "Input CSV file path (must include a 'country' column)")
	fs.StringVar(&outputPath, "output", "", "Output CSV file path")
	fs.IntVar(&opts.Workers, "workers", opts.Workers, "Number of concurrent lookups (env: WORKERS)")
	fs.Float64Var(&opts.RateLimitRPS, "rate-limit-rps", opts.RateLimitRPS, "Global lookup rate limit (RPS), 0 disables (env: RATE_LIMIT_RPS)")
	fs.BoolVar(&failFast, "fail-fast", opts.FailurePolicy == worker.FailurePolicyFailFast, "Stop at the first failed lookup (env: FAIL_FAST)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if inputPath == "" || outputPath == "" {
		_, _ = fmt.Fprintln(os.Stderr, "batch requires --input and --output")
		return 2
	}
	opts.RequestTimeout = c.RequestTimeout
	opts.FailurePolicy = worker.FailurePolicyPartialOutput
	if failFast {
		opts.FailurePolicy = worker.FailurePolicyFailFast
	}

	a, err := newApp(cfg)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", redact.Secrets(err.Error()))
		return 2
	}

	in, err := os.Open(inputPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "open input: %v\n", err)
		return 1
	}
	defer func() { _ = in.Close() }()
	out, err := os.Create(outputPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "create output: %v\n", err)
		return 1
	}

	if _, err := a.RunBatch(ctx, in, out, opts); err != nil {
		_ = out.Close()
		_, _ = fmt.Fprintf(os.Stderr, "batch run failed: %s\n", redact.Secrets(err.Error()))
		return 1
	}
	if err := out.Close(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "close output: %v\n", err)
		return 1
	}
	return 0
}

// register binds the flags shared by every command to c.
func (c *clientConfig) register(fs *flag.FlagSet) {
	fs.StringVar(&c.Endpoints.Services.RestCountries, "countries-url", c.Endpoints.Services.RestCountries, "Country lookup API base URL (env: RESTCOUNTRIES_URL)")
	fs.StringVar(&c.Endpoints.Services.Geocode, "geocode-url", c.Endpoints.Services.Geocode, "Reverse geocoding base URL (env: GEOCODE_URL)")
	fs.Float64Var(&c.GeocodeRPS, "geocode-rps", c.GeocodeRPS, "Reverse geocoding request rate (RPS), 0 disables (env: GEOCODE_RPS)")
	fs.DurationVar(&c.RequestTimeout, "request-timeout", c.RequestTimeout, "Per-request HTTP timeout (env: REQUEST_TIMEOUT)")
	fs.StringVar(&c.Format, "format", c.Format, "Output format: text or json (env: OUTPUT_FORMAT)")
}

// exitCode is 0 when every outcome succeeded and 1 otherwise.
func exitCode(outcomes ...core.Outcome) int {
	for _, o := range outcomes {
		if !o.OK() {
			return 1
		}
	}
	return 0
}

func usage(w *os.File) {
	_, _ = fmt.Fprintf(w, `countries: look up a country and its first neighbour

Usage:
  countries <command> [flags]

Commands:
  lookup    Look up one or more countries by name, then each one's first neighbour
  whereami  Resolve the country at a position (--lat/--lng, --ip or --deny)
  batch     Look up every name in a CSV 'country' column and write an outcome CSV

Examples:
  countries lookup portugal
  countries lookup --overlap last-wins france germany
  countries whereami --lat 52.508 --lng 13.381
  countries batch --input names.csv --output countries.csv

Environment:
  RESTCOUNTRIES_URL         Country lookup API base URL (default https://restcountries.com/v2)
  GEOCODE_URL               Reverse geocoding base URL (default https://geocode.xyz)
  GEOCODE_AUTH              Optional geocode.xyz auth key (never logged)
  GEOCODE_RPS               Reverse geocoding rate (default 1)
  IPGEO_URL                 IP geolocation URL for whereami --ip
  COUNTRIES_ENDPOINTS_FILE  YAML file with restcountries/geocode/ipgeo base URLs
  REQUEST_TIMEOUT           Per-request HTTP timeout (default 15s)
  OVERLAP_POLICY            independent, first-wins or last-wins
  OUTPUT_FORMAT             text or json
  WORKERS, RATE_LIMIT_RPS, FAIL_FAST  Batch tuning

`)
}

func loadWorkerOptionsFromEnv() (worker.Options, error) {
	workers, err := envInt("WORKERS", 4)
	if err != nil {
		return worker.Options{}, err
	}
	rateLimitRPS, err := envFloat("RATE_LIMIT_RPS", 0)
	if err != nil {
		return worker.Options{}, err
	}
	failFast, err := envBool("FAIL_FAST")
	if err != nil {
		return worker.Options{}, err
	}
	policy := worker.FailurePolicyPartialOutput
	if failFast {
		policy = worker.FailurePolicyFailFast
	}
	return worker.Options{
		Workers:       workers,
		RateLimitRPS:  rateLimitRPS,
		FailurePolicy: policy,
	}, nil
}

func envString(varName string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback
	}
	return v
}

func envInt(varName string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envFloat(varName string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envDuration(varName string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envBool(varName string) (bool, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return false, nil
	}
	out, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}
