// Package trigger holds the entry points that start pipeline runs and hand their outcome to a
// presenter.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shpitdev/country-lookup/pkg/geolocate"
	"github.com/shpitdev/country-lookup/pkg/pipeline/core"
	"github.com/shpitdev/country-lookup/pkg/pipeline/lookup"
	"github.com/shpitdev/country-lookup/pkg/pipeline/present"
)

// ErrRunInFlight is returned by OverlapFirstWins when a trigger arrives while a run is active.
var ErrRunInFlight = errors.New("a lookup is already running")

// OverlapPolicy decides what happens when runs overlap on the shared display.
type OverlapPolicy int

const (
	// OverlapIndependent lets every run present its outcome, in completion order.
	OverlapIndependent OverlapPolicy = iota
	// OverlapFirstWins rejects triggers while a run is in flight.
	OverlapFirstWins
	// OverlapLastWins discards the outcome of a run that finishes after a newer run started.
	OverlapLastWins
)

func (p OverlapPolicy) String() string {
	switch p {
	case OverlapFirstWins:
		return "first-wins"
	case OverlapLastWins:
		return "last-wins"
	default:
		return "independent"
	}
}

// ParseOverlapPolicy accepts "independent", "first-wins" or "last-wins" ("" means independent).
func ParseOverlapPolicy(raw string) (OverlapPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "independent":
		return OverlapIndependent, nil
	case "first-wins", "first":
		return OverlapFirstWins, nil
	case "last-wins", "last":
		return OverlapLastWins, nil
	default:
		return OverlapIndependent, fmt.Errorf("unknown overlap policy %q (want independent, first-wins or last-wins)", raw)
	}
}

// Source wires the pipeline, the presenter and the sensor together.
type Source struct {
	Pipeline  *lookup.Pipeline
	Presenter *present.Presenter
	Sensor    geolocate.Sensor
	Policy    OverlapPolicy

	mu       sync.Mutex
	inFlight int
	latest   uint64
}

// LookupByName runs the name entry of the pipeline and presents its outcome.
//
// The returned error is non-nil only when the trigger was rejected and no run took place.
func (s *Source) LookupByName(ctx context.Context, name string) (core.Outcome, error) {
	return s.run(func() core.Outcome {
		return s.Pipeline.RunPrimaryThenSecondary(ctx, name)
	})
}

// WhereAmI acquires a position and runs the position entry of the pipeline. A sensor failure,
// including denial, is presented like any other failure.
func (s *Source) WhereAmI(ctx context.Context) (core.Outcome, error) {
	return s.run(func() core.Outcome {
		if s.Sensor == nil {
			return core.Failed(geolocate.ErrPositionUnavailable)
		}
		pos, err := s.Sensor.CurrentPosition(ctx)
		if err != nil {
			return core.Failed(err)
		}
		return s.Pipeline.RunFromPosition(ctx, pos)
	})
}

func (s *Source) run(fn func() core.Outcome) (core.Outcome, error) {
	ticket, ok := s.begin()
	if !ok {
		return core.Outcome{}, ErrRunInFlight
	}
	defer s.end()

	out := fn()
	if s.Policy == OverlapLastWins && !s.isLatest(ticket) {
		s.Presenter.Finalize()
		return out, nil
	}
	s.Presenter.Present(out)
	return out, nil
}

func (s *Source) begin() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Policy == OverlapFirstWins && s.inFlight > 0 {
		return 0, false
	}
	s.inFlight++
	s.latest++
	return s.latest, true
}

func (s *Source) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--
}

func (s *Source) isLatest(ticket uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ticket == s.latest
}
