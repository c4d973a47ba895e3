// Package who reads the WHO Ambient Air Quality Database workbook.
package who

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/breatheroute/whoair/internal/airquality"
)

const (
	// DefaultSheet is the data sheet of the 2024 (V6.1) release.
	DefaultSheet = "Update 2024 (V6.1)"

	// DefaultFileName is the file name the WHO publishes the 2024 release under.
	DefaultFileName = "who_ambient_air_quality_database_version_2024_(v6.1).xlsx"
)

// Workbook errors.
var (
	ErrFileNotFound  = errors.New("WHO data file not found")
	ErrSheetNotFound = errors.New("sheet not found in workbook")
	ErrMissingColumn = errors.New("required column missing from workbook")
)

// Column headers of the WHO sheet.
const (
	colCountry   = "country_name"
	colCity      = "city"
	colYear      = "year"
	colLatitude  = "latitude"
	colLongitude = "longitude"
)

// ParseResult is the outcome of reading a workbook.
type ParseResult struct {
	Dataset *airquality.Dataset

	// Dropped counts data rows skipped for a missing country, city or year.
	Dropped int
}

// Parse reads sheet from an .xlsx stream. Rows without country, city or year
// are dropped; numeric cells that do not parse are treated as missing.
func Parse(r io.Reader, sheet string) (*ParseResult, error) {
	if sheet == "" {
		sheet = DefaultSheet
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	defer rows.Close()

	var (
		cols    *columns
		records []airquality.Record
		dropped int
	)
	for rows.Next() {
		cells, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		if cols == nil {
			cols, err = newColumns(cells)
			if err != nil {
				return nil, err
			}
			continue
		}

		if isBlank(cells) {
			continue
		}

		rec, ok := cols.record(cells)
		if !ok {
			dropped++
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if cols == nil {
		return nil, fmt.Errorf("%w: sheet %q has no header row", ErrMissingColumn, sheet)
	}

	return &ParseResult{
		Dataset: airquality.NewDataset(records),
		Dropped: dropped,
	}, nil
}

// columns maps header names to cell positions.
type columns struct {
	country, city, year int
	latitude, longitude int

	concentration map[airquality.Pollutant]int
	coverage      map[airquality.Pollutant]int
}

func newColumns(header []string) (*columns, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.ToLower(strings.TrimSpace(h))] = i
	}

	required := func(name string) (int, error) {
		i, ok := pos[name]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		return i, nil
	}
	optional := func(name string) int {
		if i, ok := pos[name]; ok {
			return i
		}
		return -1
	}

	c := &columns{
		latitude:      optional(colLatitude),
		longitude:     optional(colLongitude),
		concentration: make(map[airquality.Pollutant]int),
		coverage:      make(map[airquality.Pollutant]int),
	}

	var err error
	if c.country, err = required(colCountry); err != nil {
		return nil, err
	}
	if c.city, err = required(colCity); err != nil {
		return nil, err
	}
	if c.year, err = required(colYear); err != nil {
		return nil, err
	}

	for _, info := range airquality.Pollutants() {
		i, err := required(info.ConcentrationColumn)
		if err != nil {
			return nil, err
		}
		c.concentration[info.ID] = i
		if j := optional(info.CoverageColumn); j >= 0 {
			c.coverage[info.ID] = j
		}
	}

	return c, nil
}

func (c *columns) record(cells []string) (airquality.Record, bool) {
	country := cell(cells, c.country)
	city := cell(cells, c.city)
	year, yearOK := parseYear(cell(cells, c.year))
	if country == "" || city == "" || !yearOK {
		return airquality.Record{}, false
	}

	rec := airquality.Record{
		Country:        country,
		City:           city,
		Year:           year,
		Concentrations: make(map[airquality.Pollutant]float64, len(c.concentration)),
		Coverage:       make(map[airquality.Pollutant]float64, len(c.coverage)),
		Latitude:       numberPtr(cells, c.latitude),
		Longitude:      numberPtr(cells, c.longitude),
	}
	for p, i := range c.concentration {
		if v, ok := parseNumber(cell(cells, i)); ok {
			rec.Concentrations[p] = v
		}
	}
	for p, i := range c.coverage {
		if v, ok := parseNumber(cell(cells, i)); ok {
			rec.Coverage[p] = v
		}
	}
	return rec, true
}

// cell returns the trimmed value at i. Rows are short when trailing cells are empty.
func cell(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

func parseNumber(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Plausible measurement years. Anything else is a broken cell.
const (
	minYear = 1900
	maxYear = 9999
)

func parseYear(s string) (int, bool) {
	v, ok := parseNumber(s)
	if !ok || v != math.Trunc(v) || v < minYear || v > maxYear {
		return 0, false
	}
	return int(v), true
}

func numberPtr(cells []string, i int) *float64 {
	if v, ok := parseNumber(cell(cells, i)); ok {
		return &v
	}
	return nil
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
