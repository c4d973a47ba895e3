// Package plot renders trend charts to PNG or SVG.
package plot

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/breatheroute/whoair/internal/airquality"
)

// Format is an output image format.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

// ErrUnsupportedFormat is returned for formats other than png and svg.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// ParseFormat parses "png" or "svg". Empty means png.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return FormatPNG, nil
	case "svg":
		return FormatSVG, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Config holds configuration for a Renderer.
type Config struct {
	// Width and Height of the image in pixels (default: 1100x560).
	Width  int
	Height int
}

// Renderer draws airquality trend results.
type Renderer struct {
	width  int
	height int
}

// NewRenderer creates a new renderer.
func NewRenderer(cfg Config) *Renderer {
	if cfg.Width <= 0 {
		cfg.Width = 1100
	}
	if cfg.Height <= 0 {
		cfg.Height = 560
	}
	return &Renderer{width: cfg.Width, height: cfg.Height}
}

// legendReserve is the right-hand strip kept free for the legend.
const legendReserve = 280

// Render writes result to w. An *EmptySelection renders as a blank chart
// titled with its message.
func (r *Renderer) Render(w io.Writer, result airquality.TrendResult, format Format) error {
	var ch chart.Chart
	switch res := result.(type) {
	case *airquality.TrendChart:
		ch = r.trendChart(res)
	case *airquality.EmptySelection:
		ch = r.placeholder(res.Message)
	default:
		return fmt.Errorf("plot: unsupported result %T", result)
	}

	provider := chart.PNG
	if format == FormatSVG {
		provider = chart.SVG
	}
	if err := ch.Render(provider, w); err != nil {
		return fmt.Errorf("plot: render: %w", err)
	}
	return nil
}

func (r *Renderer) trendChart(tc *airquality.TrendChart) chart.Chart {
	var series []chart.Series
	bounds := newBounds()

	for _, s := range tc.Series {
		if len(s.Points) == 0 {
			continue
		}
		xs := make([]float64, len(s.Points))
		ys := make([]float64, len(s.Points))
		for i, p := range s.Points {
			xs[i] = float64(p.Year)
			ys[i] = p.Value
			bounds.add(p)
		}
		color := hexColor(s.Color)
		series = append(series, chart.ContinuousSeries{
			Name:    s.Name,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor:     color,
				StrokeWidth:     2,
				StrokeDashArray: dashArray(s.Dash),
				DotColor:        color,
				DotWidth:        3,
			},
		})
	}

	if len(series) == 0 {
		ch := r.placeholder(tc.Title)
		ch.Elements = []chart.Renderable{r.legend(tc.LegendTitle, legendEntries(tc))}
		return ch
	}

	ch := chart.Chart{
		Title:  tc.Title,
		Width:  r.width,
		Height: r.height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: legendReserve, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:  tc.XAxisTitle,
			Range: &chart.ContinuousRange{Min: bounds.xMin(), Max: bounds.xMax()},
			Ticks: yearTicks(bounds.xMin(), bounds.xMax()),
		},
		YAxis: chart.YAxis{
			Name:  tc.YAxisTitle,
			Range: &chart.ContinuousRange{Min: 0, Max: bounds.yMax()},
		},
		Series: series,
	}
	ch.Elements = []chart.Renderable{r.legend(tc.LegendTitle, legendEntries(tc))}
	return ch
}

// placeholder is a chart with hidden axes and a single transparent series;
// go-chart refuses to render without a visible series.
func (r *Renderer) placeholder(title string) chart.Chart {
	hidden := chart.Style{Hidden: true}
	return chart.Chart{
		Title:  title,
		Width:  r.width,
		Height: r.height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: legendReserve, Bottom: 20},
		},
		XAxis: chart.XAxis{Style: hidden, Range: &chart.ContinuousRange{Min: 0, Max: 1}},
		YAxis: chart.YAxis{Style: hidden, Range: &chart.ContinuousRange{Min: 0, Max: 1}},
		Series: []chart.Series{
			chart.ContinuousSeries{
				XValues: []float64{0, 1},
				YValues: []float64{0, 0},
				Style:   chart.Style{StrokeColor: drawing.ColorTransparent, StrokeWidth: 1},
			},
		},
	}
}

// legendEntries lists what the legend shows: the legend-only rows when the
// chart has them, otherwise the series that ask for a legend row.
func legendEntries(tc *airquality.TrendChart) []airquality.LegendEntry {
	if entries := tc.Legend(); len(entries) > 0 {
		return entries
	}
	var entries []airquality.LegendEntry
	for _, s := range tc.Series {
		if s.ShowLegend {
			entries = append(entries, airquality.LegendEntry{Name: s.Name, Color: s.Color, Dash: s.Dash})
		}
	}
	return entries
}

const (
	legendFontSize = 9.0
	legendPad      = 8
	legendSwatch   = 28
	legendSpacing  = 6
)

func (r *Renderer) legend(title string, entries []airquality.LegendEntry) chart.Renderable {
	return func(rd chart.Renderer, canvas chart.Box, defaults chart.Style) {
		if len(entries) == 0 {
			return
		}

		rd.SetFont(defaults.GetFont())
		rd.SetFontSize(legendFontSize)
		rd.SetFontColor(drawing.ColorBlack)

		lineHeight := rd.MeasureText(title).Height()
		for _, e := range entries {
			lineHeight = max(lineHeight, rd.MeasureText(e.Name).Height())
		}

		left := r.width - legendReserve + 2*legendPad
		box := chart.Box{
			Top:    canvas.Top,
			Left:   left,
			Right:  r.width - legendPad,
			Bottom: canvas.Top + (len(entries)+1)*(lineHeight+legendSpacing) + 2*legendPad,
		}
		chart.Draw.Box(rd, box, chart.Style{
			FillColor:   drawing.ColorWhite,
			StrokeColor: drawing.ColorFromHex("CCCCCC"),
			StrokeWidth: 1,
		})

		rd.SetFontColor(drawing.ColorBlack)
		y := box.Top + legendPad + lineHeight
		if title != "" {
			rd.Text(title, box.Left+legendPad, y)
			y += lineHeight + legendSpacing
		}

		for _, e := range entries {
			mid := y - lineHeight/2
			rd.SetStrokeColor(hexColor(e.Color))
			rd.SetStrokeWidth(2)
			rd.SetStrokeDashArray(dashArray(e.Dash))
			rd.MoveTo(box.Left+legendPad, mid)
			rd.LineTo(box.Left+legendPad+legendSwatch, mid)
			rd.Stroke()

			rd.SetFontColor(drawing.ColorBlack)
			rd.Text(e.Name, box.Left+2*legendPad+legendSwatch, y)
			y += lineHeight + legendSpacing
		}
		rd.SetStrokeDashArray(nil)
	}
}

func dashArray(d airquality.DashStyle) []float64 {
	switch d {
	case airquality.DashDot:
		return []float64{2, 4}
	case airquality.DashDash:
		return []float64{8, 4}
	default:
		return nil
	}
}

func hexColor(s string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(s, "#"))
}

// bounds tracks the data extent; ranges are widened so a single year or a
// flat series still has a non-zero span.
type bounds struct {
	minYear, maxYear int
	maxValue         float64
}

func newBounds() *bounds {
	return &bounds{minYear: math.MaxInt, maxYear: math.MinInt}
}

func (b *bounds) add(p airquality.Point) {
	b.minYear = min(b.minYear, p.Year)
	b.maxYear = max(b.maxYear, p.Year)
	b.maxValue = max(b.maxValue, p.Value)
}

func (b *bounds) xMin() float64 {
	if b.minYear == b.maxYear {
		return float64(b.minYear - 1)
	}
	return float64(b.minYear)
}

func (b *bounds) xMax() float64 {
	if b.minYear == b.maxYear {
		return float64(b.maxYear + 1)
	}
	return float64(b.maxYear)
}

func (b *bounds) yMax() float64 {
	if b.maxValue <= 0 {
		return 1
	}
	return b.maxValue * 1.1
}

// yearTicks labels whole years, thinning to every fifth year on long spans.
func yearTicks(from, to float64) []chart.Tick {
	step := 1
	if to-from > 12 {
		step = 5
	}
	var ticks []chart.Tick
	for y := int(from); y <= int(to); y += step {
		ticks = append(ticks, chart.Tick{Value: float64(y), Label: strconv.Itoa(y)})
	}
	return ticks
}
