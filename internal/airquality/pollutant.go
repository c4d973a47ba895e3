package airquality

import (
	"fmt"
	"strings"
)

// Pollutant identifies one of the concentrations tracked by the WHO database.
type Pollutant string

const (
	PollutantPM25 Pollutant = "PM2.5"
	PollutantPM10 Pollutant = "PM10"
	PollutantNO2  Pollutant = "NO2"
)

// DashStyle is the line style used to draw a pollutant.
type DashStyle string

const (
	DashDot   DashStyle = "dot"
	DashDash  DashStyle = "dash"
	DashSolid DashStyle = "solid"
)

// PollutantInfo describes how a pollutant is labelled, read and drawn.
type PollutantInfo struct {
	ID    Pollutant
	Label string
	Dash  DashStyle

	// ConcentrationColumn and CoverageColumn are the WHO workbook headers.
	ConcentrationColumn string
	CoverageColumn      string
}

// pollutantTable is the fixed identity table shared by every chart.
// Order is the canonical display order.
var pollutantTable = []PollutantInfo{
	{
		ID:                  PollutantPM25,
		Label:               "PM2.5 (µg/m³)",
		Dash:                DashDot,
		ConcentrationColumn: "pm25_concentration",
		CoverageColumn:      "pm25_tempcov",
	},
	{
		ID:                  PollutantPM10,
		Label:               "PM10 (µg/m³)",
		Dash:                DashDash,
		ConcentrationColumn: "pm10_concentration",
		CoverageColumn:      "pm10_tempcov",
	},
	{
		ID:                  PollutantNO2,
		Label:               "NO₂ (µg/m³)",
		Dash:                DashSolid,
		ConcentrationColumn: "no2_concentration",
		CoverageColumn:      "no2_tempcov",
	},
}

var pollutantIndex = func() map[Pollutant]PollutantInfo {
	m := make(map[Pollutant]PollutantInfo, len(pollutantTable))
	for _, info := range pollutantTable {
		m[info.ID] = info
	}
	return m
}()

// Palette is the positional colour cycle for series (Plotly qualitative).
var Palette = []string{
	"#636EFA", "#EF553B", "#00CC96", "#AB63FA", "#FFA15A",
	"#19D3F3", "#FF6692", "#B6E880", "#FF97FF", "#FECB52",
}

// LegendGray is the line colour of pollutant legend entries.
const LegendGray = "#808080"

// DefaultPollutants is the initial dashboard selection.
var DefaultPollutants = []Pollutant{PollutantPM25}

// Pollutants returns every known pollutant in display order.
func Pollutants() []PollutantInfo {
	out := make([]PollutantInfo, len(pollutantTable))
	copy(out, pollutantTable)
	return out
}

// Info returns the table entry for p.
func (p Pollutant) Info() (PollutantInfo, bool) {
	info, ok := pollutantIndex[p]
	return info, ok
}

// Label returns the display label, falling back to the raw identifier.
func (p Pollutant) Label() string {
	if info, ok := pollutantIndex[p]; ok {
		return info.Label
	}
	return string(p)
}

// Dash returns the fixed line style for p. Unknown pollutants draw solid.
func (p Pollutant) Dash() DashStyle {
	if info, ok := pollutantIndex[p]; ok {
		return info.Dash
	}
	return DashSolid
}

// Valid reports whether p is one of the known pollutants.
func (p Pollutant) Valid() bool {
	_, ok := pollutantIndex[p]
	return ok
}

// ParsePollutant parses an identifier such as "pm2.5", "PM25" or "no2".
func ParsePollutant(s string) (Pollutant, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PM2.5", "PM25":
		return PollutantPM25, nil
	case "PM10":
		return PollutantPM10, nil
	case "NO2", "NO₂":
		return PollutantNO2, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPollutant, s)
}

// PaletteColor returns the colour for position i, wrapping around the palette.
func PaletteColor(i int) string {
	if i < 0 {
		i = -i
	}
	return Palette[i%len(Palette)]
}
