package geolocate_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shpitdev/country-lookup/pkg/geolocate"
	"github.com/shpitdev/country-lookup/pkg/pipeline/core"
)

func TestStatic(t *testing.T) {
	t.Parallel()

	want := core.Position{Latitude: 52.52, Longitude: 13.405}
	got, err := geolocate.Static{Position: want}.CurrentPosition(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Fatalf("position = %v want %v", got, want)
	}

	_, err = geolocate.Static{Position: core.Position{Latitude: 91}}.CurrentPosition(context.Background())
	if !errors.Is(err, geolocate.ErrPositionUnavailable) {
		t.Fatalf("expected ErrPositionUnavailable, got %v", err)
	}
	_, err = geolocate.Static{Position: core.Position{Longitude: -181}}.CurrentPosition(context.Background())
	if !errors.Is(err, geolocate.ErrPositionUnavailable) {
		t.Fatalf("expected ErrPositionUnavailable, got %v", err)
	}
}

func TestDenied(t *testing.T) {
	t.Parallel()

	_, err := geolocate.Denied{}.CurrentPosition(context.Background())
	if !errors.Is(err, geolocate.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestIPSensor(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("fail") != "" {
			_, _ = w.Write([]byte(`{"status":"fail","message":"reserved range"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"success","lat":41.9,"lon":12.5}`))
	}))
	defer ts.Close()

	got, err := geolocate.IPSensor{URL: ts.URL}.CurrentPosition(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Latitude != 41.9 || got.Longitude != 12.5 {
		t.Fatalf("unexpected position: %v", got)
	}

	_, err = geolocate.IPSensor{URL: ts.URL + "/?fail=1"}.CurrentPosition(context.Background())
	if !errors.Is(err, geolocate.ErrPositionUnavailable) {
		t.Fatalf("expected ErrPositionUnavailable, got %v", err)
	}

	_, err = geolocate.IPSensor{}.CurrentPosition(context.Background())
	if !errors.Is(err, geolocate.ErrPositionUnavailable) {
		t.Fatalf("expected ErrPositionUnavailable without URL, got %v", err)
	}
}
