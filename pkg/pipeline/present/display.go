package present

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/shpitdev/country-lookup/pkg/pipeline/core"
)

// Format selects a display implementation.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat normalizes a user-supplied format name. Unknown values fall back to text.
func ParseFormat(raw string) Format {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "json":
		return FormatJSON
	default:
		return FormatText
	}
}

// NewDisplay returns the display for format writing to w.
func NewDisplay(format Format, w io.Writer) Display {
	if format == FormatJSON {
		return NewJSONDisplay(w)
	}
	return NewTextDisplay(w)
}

// TextDisplay keeps rendered output hidden in a buffer until Ready reveals it.
type TextDisplay struct {
	mu  sync.Mutex
	w   io.Writer
	buf bytes.Buffer

	readyCount int
}

func NewTextDisplay(w io.Writer) *TextDisplay {
	return &TextDisplay{w: w}
}

func (d *TextDisplay) Render(rec core.CountryRecord, variant Variant) {
	d.mu.Lock()
	defer d.mu.Unlock()

	header := rec.Name
	if rec.Code != "" {
		header += " [" + rec.Code + "]"
	}
	if variant != VariantNone {
		header += " (" + string(variant) + ")"
	}
	fmt.Fprintf(&d.buf, "%s\n", header)
	if rec.Region != "" {
		fmt.Fprintf(&d.buf, "  %s\n", rec.Region)
	}
	fmt.Fprintf(&d.buf, "  👫 %.1fM people (%s)\n", float64(rec.Population)/1_000_000, humanize.Comma(rec.Population))
	if rec.Language != "" {
		fmt.Fprintf(&d.buf, "  🗣️ %s\n", rec.Language)
	}
	if rec.Currency != "" {
		fmt.Fprintf(&d.buf, "  💰 %s\n", rec.Currency)
	}
	if rec.Flag != "" {
		fmt.Fprintf(&d.buf, "  flag: %s\n", rec.Flag)
	}
}

func (d *TextDisplay) AppendError(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(&d.buf, "%s\n", msg)
}

// Ready writes everything rendered so far and clears the buffer.
func (d *TextDisplay) Ready() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.readyCount++
	if d.buf.Len() == 0 {
		return
	}
	_, _ = d.w.Write(d.buf.Bytes())
	d.buf.Reset()
}

// ReadyCount returns how many times Ready was called.
func (d *TextDisplay) ReadyCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readyCount
}

// jsonCountry is the JSON rendering of a record.
type jsonCountry struct {
	Variant    string   `json:"variant,omitempty"`
	Name       string   `json:"name"`
	Code       string   `json:"code,omitempty"`
	Region     string   `json:"region,omitempty"`
	Population int64    `json:"population"`
	Flag       string   `json:"flag,omitempty"`
	Language   string   `json:"language,omitempty"`
	Currency   string   `json:"currency,omitempty"`
	Borders    []string `json:"borders,omitempty"`
}

type jsonDocument struct {
	Countries []jsonCountry `json:"countries"`
	Errors    []string      `json:"errors,omitempty"`
}

// JSONDisplay collects one run's output and writes it as a single JSON document on Ready.
type JSONDisplay struct {
	mu  sync.Mutex
	w   io.Writer
	doc jsonDocument
}

func NewJSONDisplay(w io.Writer) *JSONDisplay {
	return &JSONDisplay{w: w, doc: jsonDocument{Countries: []jsonCountry{}}}
}

func (d *JSONDisplay) Render(rec core.CountryRecord, variant Variant) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.doc.Countries = append(d.doc.Countries, jsonCountry{
		Variant:    string(variant),
		Name:       rec.Name,
		Code:       rec.Code,
		Region:     rec.Region,
		Population: rec.Population,
		Flag:       rec.Flag,
		Language:   rec.Language,
		Currency:   rec.Currency,
		Borders:    rec.Borders,
	})
}

func (d *JSONDisplay) AppendError(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.doc.Errors = append(d.doc.Errors, msg)
}

func (d *JSONDisplay) Ready() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.doc.Countries) == 0 && len(d.doc.Errors) == 0 {
		return
	}
	enc := json.NewEncoder(d.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(d.doc)
	d.doc = jsonDocument{Countries: []jsonCountry{}}
}
