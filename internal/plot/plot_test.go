package plot_test

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/whoair/internal/airquality"
	"github.com/breatheroute/whoair/internal/plot"
)

func sampleTrend() airquality.TrendResult {
	ds := airquality.NewDataset([]airquality.Record{
		{Country: "X", City: "A", Year: 2020, Concentrations: map[airquality.Pollutant]float64{airquality.PollutantPM25: 10, airquality.PollutantPM10: 25}},
		{Country: "X", City: "A", Year: 2021, Concentrations: map[airquality.Pollutant]float64{airquality.PollutantPM25: 20}},
		{Country: "Y", City: "B", Year: 2020, Concentrations: map[airquality.Pollutant]float64{airquality.PollutantPM25: 30}},
	})
	return airquality.BuildTrend(ds,
		[]airquality.Pollutant{airquality.PollutantPM25, airquality.PollutantPM10}, []string{"A", "B"})
}

func renderPNG(t *testing.T, result airquality.TrendResult) []byte {
	t.Helper()
	var buf bytes.Buffer
	err := plot.NewRenderer(plot.Config{Width: 800, Height: 400}).Render(&buf, result, plot.FormatPNG)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestRender_TrendPNG(t *testing.T) {
	data := renderPNG(t, sampleTrend())

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
	assert.Equal(t, 400, img.Bounds().Dy())
}

func TestRender_EmptySelection(t *testing.T) {
	data := renderPNG(t, &airquality.EmptySelection{Message: airquality.MsgSelectCityAndPollutant})

	_, err := png.Decode(bytes.NewReader(data))
	assert.NoError(t, err)
}

func TestRender_SeriesWithoutPoints(t *testing.T) {
	result := airquality.BuildTrend(airquality.NewDataset(nil),
		airquality.DefaultPollutants, []string{"Nowhere"})

	data := renderPNG(t, result)
	_, err := png.Decode(bytes.NewReader(data))
	assert.NoError(t, err)
}

func TestRender_SingleYear(t *testing.T) {
	ds := airquality.NewDataset([]airquality.Record{
		{Country: "X", City: "A", Year: 2019, Concentrations: map[airquality.Pollutant]float64{airquality.PollutantNO2: 0}},
	})
	result := airquality.BuildTrend(ds, []airquality.Pollutant{airquality.PollutantNO2}, []string{"A"})

	data := renderPNG(t, result)
	_, err := png.Decode(bytes.NewReader(data))
	assert.NoError(t, err)
}

func TestRender_CountryTrend(t *testing.T) {
	ds := airquality.NewDataset([]airquality.Record{
		{Country: "X", City: "A", Year: 2015, Concentrations: map[airquality.Pollutant]float64{airquality.PollutantPM10: 21}},
		{Country: "X", City: "B", Year: 2015, Concentrations: map[airquality.Pollutant]float64{airquality.PollutantPM10: 23}},
		{Country: "X", City: "A", Year: 2030, Concentrations: map[airquality.Pollutant]float64{airquality.PollutantPM10: 12}},
	})
	result, err := airquality.BuildCountryTrend(ds, []airquality.Pollutant{airquality.PollutantPM10}, "X",
		airquality.YearRange{Start: 2000, End: 2030})
	require.NoError(t, err)

	data := renderPNG(t, result)
	_, err = png.Decode(bytes.NewReader(data))
	assert.NoError(t, err)
}

func TestRender_SVG(t *testing.T) {
	var buf bytes.Buffer
	err := plot.NewRenderer(plot.Config{}).Render(&buf, sampleTrend(), plot.FormatSVG)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "<svg")
}

func TestParseFormat(t *testing.T) {
	f, err := plot.ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, plot.FormatPNG, f)
	assert.Equal(t, "image/png", f.ContentType())

	f, err = plot.ParseFormat("SVG")
	require.NoError(t, err)
	assert.Equal(t, "image/svg+xml", f.ContentType())

	_, err = plot.ParseFormat("gif")
	assert.ErrorIs(t, err, plot.ErrUnsupportedFormat)
}
