package local

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shpitdev/country-lookup/pkg/pipeline/core"
)

// CountryColumn is the required input column.
const CountryColumn = "country"

// OutcomeHeader is the header row written by WriteOutcomesCSV.
var OutcomeHeader = []string{"country", "status", "name", "region", "population", "neighbour", "error"}

// ReadCountriesCSV reads a CSV file and returns the values from the "country" column.
func ReadCountriesCSV(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := -1
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), CountryColumn) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("missing required column %q", CountryColumn)
	}

	var names []string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if idx >= len(rec) {
			return nil, fmt.Errorf("row has %d columns, want at least %d", len(rec), idx+1)
		}
		names = append(names, strings.TrimSpace(rec[idx]))
	}
	return names, nil
}

// OutcomeRow pairs a requested name with the outcome of its run.
type OutcomeRow struct {
	Country string
	Outcome core.Outcome
}

// WriteOutcomesCSV writes one row per outcome.
func WriteOutcomesCSV(w io.Writer, rows []OutcomeRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(OutcomeHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{r.Country, "error", "", "", "", "", r.Outcome.Reason()}
		if r.Outcome.OK() {
			p := r.Outcome.Primary
			rec = []string{r.Country, "ok", p.Name, p.Region, strconv.FormatInt(p.Population, 10), "", ""}
			if r.Outcome.Secondary != nil {
				rec[5] = r.Outcome.Secondary.Name
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
