package core

import (
	"errors"
	"fmt"
	"strings"
)

// Purpose says which stage of a run a lookup serves.
type Purpose string

const (
	PurposePrimary   Purpose = "primary"
	PurposeSecondary Purpose = "secondary"
)

// LookupRequest describes one remote lookup. Constructed fresh per call.
type LookupRequest struct {
	Target  string
	Purpose Purpose
}

func (r LookupRequest) String() string {
	return fmt.Sprintf("%s:%s", r.Purpose, r.Target)
}

// CountryRecord is the subset of the remote country payload the pipeline consumes.
type CountryRecord struct {
	Name       string
	Code       string
	Region     string
	Population int64
	Flag       string
	Language   string
	Currency   string

	// Borders holds neighbor country codes in remote order. Empty is a valid terminal state.
	Borders []string
}

// Position is a geographic coordinate produced by a sensor.
type Position struct {
	Latitude  float64
	Longitude float64
}

func (p Position) String() string {
	return fmt.Sprintf("%g,%g", p.Latitude, p.Longitude)
}

// Outcome is the single value a pipeline run hands to the presenter.
//
// Exactly one of the two shapes is populated: a failure (Failure != nil) or a success with a
// primary record and an optional secondary record.
type Outcome struct {
	Primary   CountryRecord
	Secondary *CountryRecord
	Failure   *Failure
}

// Failure carries the user-facing reason of a failed run plus the typed cause.
type Failure struct {
	Reason string
	Err    error
}

// Succeeded builds a success outcome. secondary may be nil.
func Succeeded(primary CountryRecord, secondary *CountryRecord) Outcome {
	return Outcome{Primary: primary, Secondary: secondary}
}

// Failed builds a failure outcome whose reason is err's message.
func Failed(err error) Outcome {
	if err == nil {
		err = errors.New("unknown failure")
	}
	return Outcome{Failure: &Failure{Reason: strings.TrimSpace(err.Error()), Err: err}}
}

// OK reports whether the run succeeded.
func (o Outcome) OK() bool {
	return o.Failure == nil
}

// Reason returns the failure reason, or "" for a success.
func (o Outcome) Reason() string {
	if o.Failure == nil {
		return ""
	}
	return o.Failure.Reason
}

// Err returns the failure cause, or nil for a success.
func (o Outcome) Err() error {
	if o.Failure == nil {
		return nil
	}
	return o.Failure.Err
}

// MissingDependencyError means a dependent stage had no input to proceed with.
type MissingDependencyError struct {
	Stage string
	What  string
}

func (e *MissingDependencyError) Error() string {
	if e == nil {
		return "missing dependency"
	}
	if strings.TrimSpace(e.Stage) == "" {
		return fmt.Sprintf("No %s found", e.What)
	}
	return fmt.Sprintf("No %s found for %s", e.What, e.Stage)
}

// ThrottledError means an upstream provider reported it is rate limiting us.
type ThrottledError struct {
	Provider string
}

func (e *ThrottledError) Error() string {
	return "Throttled..."
}

// IsThrottled reports whether err is or wraps a *ThrottledError.
func IsThrottled(err error) bool {
	var te *ThrottledError
	return errors.As(err, &te)
}
