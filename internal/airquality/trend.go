package airquality

import (
	"sort"
)

// Placeholder messages returned instead of a chart when the selection is incomplete.
const (
	MsgSelectCityAndPollutant    = "Please select at least one city and one pollutant"
	MsgSelectCountryAndPollutant = "Please select a country and pollutants"
)

// Chart layout text.
const (
	TrendTitle       = "Air Pollution Trends Over Time"
	XAxisTitle       = "Year"
	YAxisTitle       = "Concentration (µg/m³)"
	TrendLegendTitle = "Pollutant & Country"
)

// TrendResult is either a *TrendChart or an *EmptySelection.
// Callers are expected to switch on the concrete type.
type TrendResult interface {
	isTrendResult()
}

// EmptySelection is returned when the selection cannot produce a chart.
// It is an expected outcome, not an error.
type EmptySelection struct {
	Message string
}

func (*EmptySelection) isTrendResult() {}

// Point is one (year, value) sample of a series.
type Point struct {
	Year  int
	Value float64
}

// TrendSeries is a single line on a trend chart.
type TrendSeries struct {
	Name       string
	City       string
	Pollutant  Pollutant
	Points     []Point
	Color      string
	Dash       DashStyle
	ShowLegend bool
}

// LegendEntry is a legend-only line with no data.
type LegendEntry struct {
	Name  string
	Color string
	Dash  DashStyle
}

// TrendChart describes a multi-series line chart.
type TrendChart struct {
	Title       string
	XAxisTitle  string
	YAxisTitle  string
	LegendTitle string

	Series []TrendSeries

	// PollutantLegend and CityLegend give each pollutant and each city
	// exactly one legend row; the data series hide their own.
	PollutantLegend []LegendEntry
	CityLegend      []LegendEntry
}

func (*TrendChart) isTrendResult() {}

// Legend returns the pollutant entries followed by the city entries.
func (c *TrendChart) Legend() []LegendEntry {
	out := make([]LegendEntry, 0, len(c.PollutantLegend)+len(c.CityLegend))
	out = append(out, c.PollutantLegend...)
	return append(out, c.CityLegend...)
}

// PointCount returns the total number of points over all series.
func (c *TrendChart) PointCount() int {
	n := 0
	for _, s := range c.Series {
		n += len(s.Points)
	}
	return n
}

// BuildTrend builds one series per pollutant and city of subset, in the
// order given. The Nth city gets the Nth palette colour.
func BuildTrend(subset *Dataset, pollutants []Pollutant, cities []string) TrendResult {
	if len(pollutants) == 0 || len(cities) == 0 {
		return &EmptySelection{Message: MsgSelectCityAndPollutant}
	}

	byCity := rowsByCity(subset)

	chart := &TrendChart{
		Title:       TrendTitle,
		XAxisTitle:  XAxisTitle,
		YAxisTitle:  YAxisTitle,
		LegendTitle: TrendLegendTitle,
		Series:      make([]TrendSeries, 0, len(pollutants)*len(cities)),
	}

	for _, p := range pollutants {
		for i, city := range cities {
			chart.Series = append(chart.Series, TrendSeries{
				Name:      city + " - " + p.Label(),
				City:      city,
				Pollutant: p,
				Points:    seriesPoints(byCity[city], p),
				Color:     PaletteColor(i),
				Dash:      p.Dash(),
			})
		}
	}

	for _, p := range pollutants {
		chart.PollutantLegend = append(chart.PollutantLegend, LegendEntry{
			Name:  "Pollutant : " + p.Label(),
			Color: LegendGray,
			Dash:  p.Dash(),
		})
	}
	for i, city := range cities {
		chart.CityLegend = append(chart.CityLegend, LegendEntry{
			Name:  "City : " + city,
			Color: PaletteColor(i),
			Dash:  DashSolid,
		})
	}

	return chart
}

// rowsByCity groups rows by city, each group sorted by year ascending.
// Rows of equal year keep their dataset order.
func rowsByCity(ds *Dataset) map[string][]Record {
	groups := make(map[string][]Record)
	if ds == nil {
		return groups
	}
	for _, rec := range ds.records {
		groups[rec.City] = append(groups[rec.City], rec)
	}
	for _, rows := range groups {
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Year < rows[j].Year })
	}
	return groups
}

func seriesPoints(rows []Record, p Pollutant) []Point {
	points := make([]Point, 0, len(rows))
	for _, rec := range rows {
		if v, ok := rec.Value(p); ok {
			points = append(points, Point{Year: rec.Year, Value: v})
		}
	}
	return points
}
