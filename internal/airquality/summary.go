package airquality

import (
	"fmt"
	"strconv"
)

// SummaryStatus tells whether a summary entry carries a value.
type SummaryStatus string

const (
	SummaryAvailable SummaryStatus = "AVAILABLE"
	SummaryNoData    SummaryStatus = "NO_DATA"
)

// MsgNoDataForFilters is the single entry returned when no pollutant is selected.
const MsgNoDataForFilters = "No data available for the selected filters"

// SummaryEntry is the maximum of one pollutant over a subset.
type SummaryEntry struct {
	Pollutant Pollutant
	Status    SummaryStatus

	// Message is set for NoData entries.
	Message string

	Max  float64
	Year int

	// City is only set when the subset spans more than one city.
	City string
}

// Text renders the entry as a single line for display.
func (e SummaryEntry) Text() string {
	if e.Status != SummaryAvailable {
		return e.Message
	}
	s := fmt.Sprintf("Max %s: %s in %d", e.Pollutant.Label(), strconv.FormatFloat(e.Max, 'f', -1, 64), e.Year)
	if e.City != "" {
		s += " (" + e.City + ")"
	}
	return s
}

// BuildSummary reports, per pollutant, the maximum value in subset and the
// first row (in subset order) where it occurs.
func BuildSummary(subset *Dataset, pollutants []Pollutant) []SummaryEntry {
	if len(pollutants) == 0 {
		return []SummaryEntry{{Status: SummaryNoData, Message: MsgNoDataForFilters}}
	}

	var rows []Record
	if subset != nil {
		rows = subset.records
	}
	multiCity := spansMultipleCities(rows)

	entries := make([]SummaryEntry, 0, len(pollutants))
	for _, p := range pollutants {
		best := -1
		var maxVal float64
		for i, rec := range rows {
			v, ok := rec.Value(p)
			if !ok {
				continue
			}
			// strict comparison keeps the first occurrence on ties
			if best < 0 || v > maxVal {
				best, maxVal = i, v
			}
		}

		if best < 0 {
			entries = append(entries, SummaryEntry{
				Pollutant: p,
				Status:    SummaryNoData,
				Message:   fmt.Sprintf("No data available for %s in the selected filters", p.Label()),
			})
			continue
		}

		entry := SummaryEntry{
			Pollutant: p,
			Status:    SummaryAvailable,
			Max:       maxVal,
			Year:      rows[best].Year,
		}
		if multiCity {
			entry.City = rows[best].City
		}
		entries = append(entries, entry)
	}

	return entries
}

func spansMultipleCities(rows []Record) bool {
	if len(rows) == 0 {
		return false
	}
	for _, rec := range rows[1:] {
		if rec.City != rows[0].City {
			return true
		}
	}
	return false
}
