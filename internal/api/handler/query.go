package handler

import (
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/breatheroute/whoair/internal/airquality"
	"github.com/breatheroute/whoair/internal/api/models"
)

// Pagination bounds for the raw record preview.
const (
	DefaultRecordLimit = 10
	MaxRecordLimit     = 500
)

// multiValue returns the distinct values of key in first-seen order,
// splitting comma-separated lists and dropping blanks.
func multiValue(q url.Values, key string) []string {
	var out []string
	for _, raw := range q[key] {
		for _, part := range strings.Split(raw, ",") {
			if v := strings.TrimSpace(part); v != "" && !slices.Contains(out, v) {
				out = append(out, v)
			}
		}
	}
	return out
}

// parseSelection reads the dashboard filters from the query string.
// Missing years default to the full dataset range; a missing pollutant
// parameter selects the default pollutants while an explicitly empty one
// selects none.
func parseSelection(q url.Values, bounds airquality.YearRange) (airquality.Selection, []models.FieldError) {
	var errs []models.FieldError

	sel := airquality.Selection{
		Cities:  multiValue(q, "city"),
		Country: strings.TrimSpace(q.Get("country")),
		Years:   bounds,
	}

	if _, present := q["pollutant"]; present {
		sel.Pollutants = make([]airquality.Pollutant, 0)
		for _, v := range multiValue(q, "pollutant") {
			p, err := airquality.ParsePollutant(v)
			if err != nil {
				errs = append(errs, models.FieldError{
					Field:   "pollutant",
					Message: "unknown pollutant " + strconv.Quote(v),
					Code:    models.CodeInvalidEnum,
				})
				continue
			}
			// Aliases such as PM25 and pm2.5 name the same pollutant.
			if !slices.Contains(sel.Pollutants, p) {
				sel.Pollutants = append(sel.Pollutants, p)
			}
		}
	} else {
		sel.Pollutants = append([]airquality.Pollutant(nil), airquality.DefaultPollutants...)
	}

	if v, ok, fe := intParam(q, "from"); fe != nil {
		errs = append(errs, *fe)
	} else if ok {
		sel.Years.Start = v
	}
	if v, ok, fe := intParam(q, "to"); fe != nil {
		errs = append(errs, *fe)
	} else if ok {
		sel.Years.End = v
	}

	if len(errs) == 0 && sel.Years.Start > sel.Years.End {
		errs = append(errs, models.FieldError{
			Field:   "from",
			Message: "from must not be after to",
			Code:    models.CodeInvalidRange,
		})
	}

	return sel, errs
}

// parsePage reads limit and cursor. The cursor is the decimal offset of the
// next record.
func parsePage(q url.Values) (offset, limit int, errs []models.FieldError) {
	limit = DefaultRecordLimit
	if v, ok, fe := intParam(q, "limit"); fe != nil {
		errs = append(errs, *fe)
	} else if ok {
		if v < 1 || v > MaxRecordLimit {
			errs = append(errs, models.FieldError{
				Field:   "limit",
				Message: "limit must be between 1 and " + strconv.Itoa(MaxRecordLimit),
				Code:    models.CodeInvalidRange,
			})
		} else {
			limit = v
		}
	}

	if c := strings.TrimSpace(q.Get("cursor")); c != "" {
		v, err := strconv.Atoi(c)
		if err != nil || v < 0 {
			errs = append(errs, models.FieldError{
				Field:   "cursor",
				Message: "malformed cursor",
				Code:    models.CodeInvalidCursor,
			})
		} else {
			offset = v
		}
	}

	return offset, limit, errs
}

func intParam(q url.Values, key string) (int, bool, *models.FieldError) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, &models.FieldError{
			Field:   key,
			Message: key + " must be an integer",
			Code:    models.CodeInvalidInteger,
		}
	}
	return v, true, nil
}
