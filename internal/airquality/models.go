// Package airquality provides the WHO air quality dataset and the queries the
// dashboard runs against it: filtering, trend building, per-country averages
// and maximum-value summaries.
package airquality

import (
	"errors"
	"sort"
)

// Dataset errors.
var (
	ErrDatasetNotLoaded  = errors.New("air quality dataset not loaded")
	ErrSourceUnavailable = errors.New("air quality dataset source unavailable")
	ErrUnknownPollutant  = errors.New("unknown pollutant")
	ErrInvalidRange      = errors.New("invalid year range")
)

// Record is one (country, city, year) observation from the WHO database.
type Record struct {
	Country string
	City    string
	Year    int

	// Concentrations holds the annual mean per pollutant in µg/m³.
	// A missing key means the pollutant was not measured.
	Concentrations map[Pollutant]float64

	// Coverage holds the temporal coverage percentage per pollutant.
	// Carried through for display only.
	Coverage map[Pollutant]float64

	Latitude  *float64
	Longitude *float64
}

// Value returns the concentration of p and whether it was measured.
func (r Record) Value(p Pollutant) (float64, bool) {
	v, ok := r.Concentrations[p]
	return v, ok
}

// Dataset is an ordered, read-only sequence of records.
// Nothing in this package writes to a Dataset after NewDataset returns.
type Dataset struct {
	records []Record
}

// NewDataset creates a dataset from records, preserving their order.
func NewDataset(records []Record) *Dataset {
	owned := make([]Record, len(records))
	copy(owned, records)
	return &Dataset{records: owned}
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

// Records returns a copy of the record slice in dataset order.
func (d *Dataset) Records() []Record {
	if d == nil {
		return nil
	}
	out := make([]Record, len(d.records))
	copy(out, d.records)
	return out
}

// Page returns up to limit records starting at offset.
func (d *Dataset) Page(offset, limit int) []Record {
	if d == nil || offset >= len(d.records) || limit <= 0 {
		return nil
	}
	if offset < 0 {
		offset = 0
	}
	end := offset + limit
	if end > len(d.records) {
		end = len(d.records)
	}
	out := make([]Record, end-offset)
	copy(out, d.records[offset:end])
	return out
}

// Cities returns the distinct city names, sorted.
func (d *Dataset) Cities() []string {
	return d.distinct(func(r Record) string { return r.City })
}

// Countries returns the distinct country names, sorted.
func (d *Dataset) Countries() []string {
	return d.distinct(func(r Record) string { return r.Country })
}

// YearBounds returns the smallest and largest year in the dataset.
// ok is false for an empty dataset.
func (d *Dataset) YearBounds() (r YearRange, ok bool) {
	if d.Len() == 0 {
		return YearRange{}, false
	}
	r = YearRange{Start: d.records[0].Year, End: d.records[0].Year}
	for _, rec := range d.records[1:] {
		if rec.Year < r.Start {
			r.Start = rec.Year
		}
		if rec.Year > r.End {
			r.End = rec.Year
		}
	}
	return r, true
}

func (d *Dataset) distinct(key func(Record) string) []string {
	if d == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, rec := range d.records {
		k := key(rec)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// YearRange is an inclusive range of years.
type YearRange struct {
	Start int
	End   int
}

// Contains reports whether year lies within the range.
func (r YearRange) Contains(year int) bool {
	return year >= r.Start && year <= r.End
}

// Validate returns an *InvalidRangeError if Start is after End.
func (r YearRange) Validate() error {
	if r.Start > r.End {
		return &InvalidRangeError{Start: r.Start, End: r.End}
	}
	return nil
}

// Marks returns the slider labels for the range: every step years from Start.
func (r YearRange) Marks(step int) []int {
	if step <= 0 || r.Start > r.End {
		return nil
	}
	var marks []int
	for y := r.Start; y <= r.End; y += step {
		marks = append(marks, y)
	}
	return marks
}
