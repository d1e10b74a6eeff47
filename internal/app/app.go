package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/shpitdev/country-lookup/internal/version"
	"github.com/shpitdev/country-lookup/pkg/endpoints"
	"github.com/shpitdev/country-lookup/pkg/fetch"
	"github.com/shpitdev/country-lookup/pkg/geocode"
	"github.com/shpitdev/country-lookup/pkg/geolocate"
	"github.com/shpitdev/country-lookup/pkg/pipeline/core"
	"github.com/shpitdev/country-lookup/pkg/pipeline/io/local"
	"github.com/shpitdev/country-lookup/pkg/pipeline/lookup"
	"github.com/shpitdev/country-lookup/pkg/pipeline/present"
	"github.com/shpitdev/country-lookup/pkg/pipeline/redact"
	"github.com/shpitdev/country-lookup/pkg/pipeline/trigger"
	"github.com/shpitdev/country-lookup/pkg/pipeline/worker"
	"github.com/shpitdev/country-lookup/pkg/restcountries"
)

// Config is everything needed to build the remote clients and the pipeline.
type Config struct {
	Endpoints endpoints.Env

	// GeocodeRPS paces reverse-geocoding requests. <=0 disables pacing.
	GeocodeRPS float64

	// RequestTimeout is the http.Client timeout. Zero keeps the transport defaults.
	RequestTimeout time.Duration

	// HTTPClient overrides the client built from RequestTimeout.
	HTTPClient *http.Client

	// Logger receives run logs. Defaults to stderr so stdout stays the display surface.
	Logger *log.Logger
}

// App holds the wired pipeline for one CLI invocation.
type App struct {
	Pipeline *lookup.Pipeline
	ipGeoURL string
	fetcher  *fetch.Fetcher

	logger *log.Logger
	runID  string
}

// New builds the fetchers, clients and pipeline described by cfg.
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
			Timeout:   cfg.RequestTimeout,
		}
	}

	base := []fetch.Option{fetch.WithHTTPClient(hc), fetch.WithUserAgent(version.UserAgent())}
	fetcher := fetch.New(base...)

	geoOpts := base
	if cfg.GeocodeRPS > 0 {
		geoOpts = append(append([]fetch.Option(nil), base...), fetch.WithLimiter(rate.NewLimiter(rate.Limit(cfg.GeocodeRPS), 1)))
	}

	countries, err := restcountries.NewClient(cfg.Endpoints.Services.RestCountries, fetcher)
	if err != nil {
		return nil, err
	}
	geocoder, err := geocode.NewClient(cfg.Endpoints.Services.Geocode, cfg.Endpoints.GeocodeAuth, fetch.New(geoOpts...))
	if err != nil {
		return nil, err
	}

	a := &App{
		ipGeoURL: strings.TrimSpace(cfg.Endpoints.Services.IPGeo),
		fetcher:  fetcher,
		logger:   logger,
		runID:    fmt.Sprintf("run-%d", time.Now().UnixNano()),
	}
	a.Pipeline = &lookup.Pipeline{
		Countries: countries,
		Geocoder:  geocoder,
		Logf:      a.logf,
	}
	return a, nil
}

func (a *App) logf(format string, args ...any) {
	prefix := make([]any, 0, len(args)+1)
	prefix = append(prefix, a.runID)
	prefix = append(prefix, args...)
	a.logger.Printf("run=%s "+format, prefix...)
}

// IPSensor returns a sensor that locates the caller through the configured IP geolocation URL.
func (a *App) IPSensor() geolocate.Sensor {
	return geolocate.IPSensor{URL: a.ipGeoURL, Fetcher: a.fetcher}
}

// Lookup triggers one name lookup per name and presents each outcome on display. Several names
// start concurrently, like rapid repeated triggers, so policy decides how they share display.
func (a *App) Lookup(ctx context.Context, names []string, display present.Display, policy trigger.OverlapPolicy) []core.Outcome {
	src := &trigger.Source{
		Pipeline:  a.Pipeline,
		Presenter: present.New(display),
		Policy:    policy,
	}
	start := time.Now()
	a.logf("lookup start: names=%d policy=%s", len(names), policy)

	outcomes := make([]core.Outcome, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			out, err := src.LookupByName(ctx, name)
			if err != nil {
				a.logf("lookup %q rejected: %v", name, err)
				outcomes[i] = core.Failed(err)
				return
			}
			outcomes[i] = out
		}(i, name)
	}
	wg.Wait()

	ok, failed := countOutcomes(outcomes)
	a.logf("lookup complete: ok=%d error=%d duration=%s", ok, failed, time.Since(start).Round(time.Millisecond))
	return outcomes
}

// WhereAmI locates the caller with sensor and presents the country found there.
func (a *App) WhereAmI(ctx context.Context, sensor geolocate.Sensor, display present.Display) core.Outcome {
	src := &trigger.Source{
		Pipeline:  a.Pipeline,
		Presenter: present.New(display),
		Sensor:    sensor,
	}
	start := time.Now()
	out, err := src.WhereAmI(ctx)
	if err != nil {
		out = core.Failed(err)
	}
	if out.OK() {
		a.logf("where-am-i complete: country=%q duration=%s", out.Primary.Name, time.Since(start).Round(time.Millisecond))
	} else {
		a.logf("where-am-i failed: %s duration=%s", redact.Secrets(out.Reason()), time.Since(start).Round(time.Millisecond))
	}
	return out
}

// RunBatch reads names from a CSV "country" column, runs each through the pipeline on the
// worker pool and writes one CSV row per name.
func (a *App) RunBatch(ctx context.Context, in io.Reader, out io.Writer, opts worker.Options) ([]local.OutcomeRow, error) {
	names, err := local.ReadCountriesCSV(in)
	if err != nil {
		return nil, err
	}
	a.logf(
		"batch start: names=%d workers=%d timeout=%s rateLimitRPS=%g failFast=%t",
		len(names),
		opts.Workers,
		opts.RequestTimeout,
		opts.RateLimitRPS,
		opts.FailurePolicy == worker.FailurePolicyFailFast,
	)
	start := time.Now()

	completed := 0
	results, err := worker.ProcessAllWithCallback(ctx, names, func(ctx context.Context, name string) (core.Outcome, error) {
		o := a.Pipeline.RunPrimaryThenSecondary(ctx, name)
		return o, o.Err()
	}, func(res worker.Result[string, core.Outcome]) error {
		completed++
		status := "ok"
		if res.Err != nil {
			status = "error"
		}
		a.logf("batch row done: country=%q status=%s completed=%d/%d", res.Input, status, completed, len(names))
		return nil
	}, opts)
	if err != nil {
		return nil, err
	}

	rows := make([]local.OutcomeRow, 0, len(results))
	for _, r := range results {
		o := r.Output
		if r.Err != nil && o.OK() {
			// The pool failed the item before the pipeline produced an outcome.
			o = core.Failed(r.Err)
		}
		rows = append(rows, local.OutcomeRow{Country: r.Input, Outcome: o})
	}
	if err := local.WriteOutcomesCSV(out, rows); err != nil {
		return nil, err
	}

	outcomes := make([]core.Outcome, len(rows))
	for i, r := range rows {
		outcomes[i] = r.Outcome
	}
	ok, failed := countOutcomes(outcomes)
	a.logf("batch complete: ok=%d error=%d duration=%s", ok, failed, time.Since(start).Round(time.Millisecond))
	return rows, nil
}

func countOutcomes(outcomes []core.Outcome) (ok, failed int) {
	for _, o := range outcomes {
		if o.OK() {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}
