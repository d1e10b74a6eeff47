// Package present turns a pipeline outcome into output on a display surface.
package present

import (
	"fmt"
	"strings"
	"sync"

	"github.com/shpitdev/country-lookup/pkg/pipeline/core"
	"github.com/shpitdev/country-lookup/pkg/pipeline/redact"
)

// Variant tags how a record is rendered.
type Variant string

const (
	VariantNone     Variant = ""
	VariantNeighbor Variant = "neighbour"
)

// Display is the surface a run writes to.
//
// Ready restores the surface to its visible state. It is the last call of every run.
type Display interface {
	Render(rec core.CountryRecord, variant Variant)
	AppendError(msg string)
	Ready()
}

// Presenter renders outcomes. It never inspects anything beyond the outcome it is given.
type Presenter struct {
	Display Display

	// mu keeps one outcome's renders and its Ready together when runs overlap.
	mu sync.Mutex
}

// New constructs a presenter for d.
func New(d Display) *Presenter {
	return &Presenter{Display: d}
}

// Present renders a success or writes the failure reason, then finalizes the surface exactly once.
func (p *Presenter) Present(o core.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.Display.Ready()

	if !o.OK() {
		p.Display.AppendError(ErrorMessage(o.Reason()))
		return
	}
	p.Display.Render(o.Primary, VariantNone)
	if o.Secondary != nil {
		p.Display.Render(*o.Secondary, VariantNeighbor)
	}
}

// Finalize restores the surface without rendering anything. Used by runs whose outcome is
// discarded.
func (p *Presenter) Finalize() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Display.Ready()
}

// ErrorMessage is the user-visible text for a failure reason.
func ErrorMessage(reason string) string {
	reason = strings.TrimSpace(redact.Secrets(reason))
	if reason == "" {
		reason = "unknown error"
	}
	return fmt.Sprintf("Something went wrong: %s. Try again!", reason)
}
