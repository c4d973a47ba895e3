package models

// PollutantOption is a selectable pollutant.
type PollutantOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Dash  string `json:"dash"`
}

// YearRange is an inclusive range of years.
type YearRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Options lists what the dashboard can filter on.
type Options struct {
	Cities            []string          `json:"cities"`
	Countries         []string          `json:"countries"`
	Pollutants        []PollutantOption `json:"pollutants"`
	DefaultPollutants []string          `json:"defaultPollutants"`
	Years             YearRange         `json:"years"`
	YearMarks         []int             `json:"yearMarks"`
}

// Record is one row of the raw data preview.
type Record struct {
	Country           string   `json:"country"`
	City              string   `json:"city"`
	Year              int      `json:"year"`
	PM25Concentration *float64 `json:"pm25Concentration"`
	PM10Concentration *float64 `json:"pm10Concentration"`
	NO2Concentration  *float64 `json:"no2Concentration"`
	PM25Coverage      *float64 `json:"pm25Coverage"`
	PM10Coverage      *float64 `json:"pm10Coverage"`
	NO2Coverage       *float64 `json:"no2Coverage"`
	Latitude          *float64 `json:"latitude"`
	Longitude         *float64 `json:"longitude"`
}

// PagedRecords is one page of the raw data preview.
type PagedRecords struct {
	Items []Record          `json:"items"`
	Meta  PagedResponseMeta `json:"meta"`
}

// TrendKind distinguishes a chart from an incomplete selection.
type TrendKind string

const (
	TrendKindChart          TrendKind = "CHART"
	TrendKindEmptySelection TrendKind = "EMPTY_SELECTION"
)

// TrendPoint is one (year, value) sample.
type TrendPoint struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// TrendSeries is one line of a trend chart.
type TrendSeries struct {
	Name       string       `json:"name"`
	City       string       `json:"city,omitempty"`
	Pollutant  string       `json:"pollutant"`
	Color      string       `json:"color"`
	Dash       string       `json:"dash"`
	ShowLegend bool         `json:"showLegend"`
	Points     []TrendPoint `json:"points"`
}

// LegendEntry is a legend-only row.
type LegendEntry struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Dash  string `json:"dash"`
}

// Trend is either a chart description or an empty-selection message.
type Trend struct {
	Kind        TrendKind     `json:"kind"`
	Message     string        `json:"message,omitempty"`
	Title       string        `json:"title,omitempty"`
	XAxisTitle  string        `json:"xAxisTitle,omitempty"`
	YAxisTitle  string        `json:"yAxisTitle,omitempty"`
	LegendTitle string        `json:"legendTitle,omitempty"`
	Series      []TrendSeries `json:"series,omitempty"`
	Legend      []LegendEntry `json:"legend,omitempty"`
}

// SummaryEntry is the maximum of one pollutant over the selection.
type SummaryEntry struct {
	Pollutant string   `json:"pollutant,omitempty"`
	Label     string   `json:"label,omitempty"`
	Status    string   `json:"status"`
	Max       *float64 `json:"max,omitempty"`
	Year      *int     `json:"year,omitempty"`
	City      *string  `json:"city,omitempty"`
	Text      string   `json:"text"`
}

// Summary is the list of per-pollutant maxima.
type Summary struct {
	Items []SummaryEntry `json:"items"`
}
