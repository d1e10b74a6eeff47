package core_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shpitdev/country-lookup/pkg/pipeline/core"
)

func TestOutcome(t *testing.T) {
	t.Parallel()

	ok := core.Succeeded(core.CountryRecord{Name: "France"}, nil)
	if !ok.OK() || ok.Reason() != "" || ok.Err() != nil {
		t.Fatalf("unexpected success outcome: %#v", ok)
	}

	cause := errors.New("Country not found (404)")
	bad := core.Failed(cause)
	if bad.OK() {
		t.Fatalf("expected failure")
	}
	if bad.Reason() != "Country not found (404)" {
		t.Fatalf("reason = %q", bad.Reason())
	}
	if !errors.Is(bad.Err(), cause) {
		t.Fatalf("cause lost: %v", bad.Err())
	}

	if core.Failed(nil).OK() {
		t.Fatalf("Failed(nil) must still be a failure")
	}
}

func TestThrottled(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("reverse geocode: %w", &core.ThrottledError{Provider: "geocode.xyz"})
	if !core.IsThrottled(err) {
		t.Fatalf("expected wrapped throttled error to be detected")
	}
	if core.IsThrottled(errors.New("Throttled")) {
		t.Fatalf("plain error must not count as throttled")
	}
	if got := core.Failed(&core.ThrottledError{}).Reason(); got != "Throttled..." {
		t.Fatalf("reason = %q", got)
	}
}

func TestMissingDependencyError(t *testing.T) {
	t.Parallel()

	err := &core.MissingDependencyError{Stage: "position 1,2", What: "country"}
	if err.Error() != "No country found for position 1,2" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	if (&core.MissingDependencyError{What: "neighbour"}).Error() != "No neighbour found" {
		t.Fatalf("unexpected message without stage")
	}
}
