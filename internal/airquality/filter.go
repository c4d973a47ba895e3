package airquality

import "fmt"

// InvalidRangeError is returned when a year range starts after it ends.
type InvalidRangeError struct {
	Start int
	End   int
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid year range: start %d is after end %d", e.Start, e.End)
}

// Is makes errors.Is(err, ErrInvalidRange) match.
func (e *InvalidRangeError) Is(target error) bool {
	return target == ErrInvalidRange
}

// Selection is the set of filters chosen on the dashboard.
// An empty Cities slice or an empty Country matches every row.
type Selection struct {
	Cities     []string
	Country    string
	Pollutants []Pollutant
	Years      YearRange
}

// Filter returns the records of ds that match every predicate of sel, in
// dataset order. Pollutants do not restrict rows.
func Filter(ds *Dataset, sel Selection) (*Dataset, error) {
	if err := sel.Years.Validate(); err != nil {
		return nil, err
	}

	var cities map[string]struct{}
	if len(sel.Cities) > 0 {
		cities = make(map[string]struct{}, len(sel.Cities))
		for _, c := range sel.Cities {
			cities[c] = struct{}{}
		}
	}

	out := make([]Record, 0)
	if ds != nil {
		for _, rec := range ds.records {
			if !sel.Years.Contains(rec.Year) {
				continue
			}
			if cities != nil {
				if _, ok := cities[rec.City]; !ok {
					continue
				}
			}
			if sel.Country != "" && rec.Country != sel.Country {
				continue
			}
			out = append(out, rec)
		}
	}

	return &Dataset{records: out}, nil
}
