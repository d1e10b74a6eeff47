// Package geolocate provides position sensors for the "where am I" trigger.
package geolocate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shpitdev/country-lookup/pkg/fetch"
	"github.com/shpitdev/country-lookup/pkg/pipeline/core"
)

var (
	// ErrPermissionDenied is returned when the user refused to share a position.
	ErrPermissionDenied = errors.New("User denied Geolocation")
	// ErrPositionUnavailable is returned when no position could be determined.
	ErrPositionUnavailable = errors.New("Position unavailable")
)

// Sensor yields the current position once per call.
type Sensor interface {
	CurrentPosition(ctx context.Context) (core.Position, error)
}

// SensorFunc adapts a function to the Sensor interface.
type SensorFunc func(ctx context.Context) (core.Position, error)

func (f SensorFunc) CurrentPosition(ctx context.Context) (core.Position, error) {
	return f(ctx)
}

// Static reports a fixed position, e.g. one passed on the command line.
type Static struct {
	Position core.Position
}

func (s Static) CurrentPosition(_ context.Context) (core.Position, error) {
	if err := Validate(s.Position); err != nil {
		return core.Position{}, err
	}
	return s.Position, nil
}

// Denied behaves like a sensor whose permission prompt was refused.
type Denied struct{}

func (Denied) CurrentPosition(_ context.Context) (core.Position, error) {
	return core.Position{}, ErrPermissionDenied
}

// Validate checks latitude and longitude ranges.
func Validate(p core.Position) error {
	if math.IsNaN(p.Latitude) || p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrPositionUnavailable, p.Latitude)
	}
	if math.IsNaN(p.Longitude) || p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrPositionUnavailable, p.Longitude)
	}
	return nil
}

// ipAPIResponse is the ip-api.com JSON shape.
type ipAPIResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// IPSensor approximates the position from the caller's public IP address.
type IPSensor struct {
	URL     string
	Fetcher *fetch.Fetcher
}

func (s IPSensor) CurrentPosition(ctx context.Context) (core.Position, error) {
	u := strings.TrimSpace(s.URL)
	if u == "" {
		return core.Position{}, fmt.Errorf("%w: no IP geolocation URL configured", ErrPositionUnavailable)
	}
	f := s.Fetcher
	if f == nil {
		f = fetch.New()
	}

	var resp ipAPIResponse
	if err := f.FetchJSON(ctx, u, "Position unavailable", &resp); err != nil {
		return core.Position{}, err
	}
	if !strings.EqualFold(strings.TrimSpace(resp.Status), "success") {
		msg := strings.TrimSpace(resp.Message)
		if msg == "" {
			msg = "status " + resp.Status
		}
		return core.Position{}, fmt.Errorf("%w: %s", ErrPositionUnavailable, msg)
	}
	pos := core.Position{Latitude: resp.Lat, Longitude: resp.Lon}
	if err := Validate(pos); err != nil {
		return core.Position{}, err
	}
	return pos, nil
}
