package handler

import (
	"bytes"
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/breatheroute/whoair/internal/airquality"
	"github.com/breatheroute/whoair/internal/api/models"
	"github.com/breatheroute/whoair/internal/api/response"
	"github.com/breatheroute/whoair/internal/plot"
)

// unbounded is used when no dataset is loaded yet, so that explicit years
// still validate against each other.
var unbounded = airquality.YearRange{Start: math.MinInt32, End: math.MaxInt32}

// DashboardHandler handles the dashboard query endpoints.
type DashboardHandler struct {
	service  *airquality.Service
	renderer *plot.Renderer
}

// NewDashboardHandler creates a new DashboardHandler. renderer may be nil,
// in which case the image endpoints respond 404.
func NewDashboardHandler(service *airquality.Service, renderer *plot.Renderer) *DashboardHandler {
	return &DashboardHandler{
		service:  service,
		renderer: renderer,
	}
}

// GetOptions handles GET /v1/dashboard/options - selectable filter values.
func (h *DashboardHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.service.Options(r.Context())
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	pollutants := make([]models.PollutantOption, len(opts.Pollutants))
	for i, p := range opts.Pollutants {
		pollutants[i] = models.PollutantOption{
			ID:    string(p.ID),
			Label: p.Label,
			Dash:  string(p.Dash),
		}
	}

	response.JSON(w, r, http.StatusOK, models.Options{
		Cities:            nonNil(opts.Cities),
		Countries:         nonNil(opts.Countries),
		Pollutants:        pollutants,
		DefaultPollutants: pollutantIDs(opts.DefaultPollutants),
		Years:             models.YearRange{Start: opts.Years.Start, End: opts.Years.End},
		YearMarks:         nonNilInts(opts.YearMarks),
	})
}

// ListRecords handles GET /v1/dashboard/records - paged raw data preview.
func (h *DashboardHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	offset, limit, errs := parsePage(r.URL.Query())
	if len(errs) > 0 {
		response.BadRequest(w, r, "invalid pagination parameters", errs)
		return
	}

	records, total, err := h.service.Records(r.Context(), offset, limit)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	page := models.PagedRecords{
		Items: make([]models.Record, len(records)),
		Meta:  models.PagedResponseMeta{Limit: limit, Total: total},
	}
	for i, rec := range records {
		page.Items[i] = toRecord(rec)
	}
	if next := offset + len(records); len(records) > 0 && next < total {
		cursor := strconv.Itoa(next)
		page.Meta.NextCursor = &cursor
	}

	response.JSON(w, r, http.StatusOK, page)
}

// GetTrend handles GET /v1/dashboard/trend - per-city trend chart.
func (h *DashboardHandler) GetTrend(w http.ResponseWriter, r *http.Request) {
	result, ok := h.trend(w, r, h.service.Trend)
	if !ok {
		return
	}
	response.JSON(w, r, http.StatusOK, toTrend(result))
}

// GetCountryTrend handles GET /v1/dashboard/country-trend - per-year country averages.
func (h *DashboardHandler) GetCountryTrend(w http.ResponseWriter, r *http.Request) {
	result, ok := h.trend(w, r, h.service.CountryTrend)
	if !ok {
		return
	}
	response.JSON(w, r, http.StatusOK, toTrend(result))
}

// TrendImage returns a handler rendering the per-city trend in format.
func (h *DashboardHandler) TrendImage(format plot.Format) http.HandlerFunc {
	return h.image(format, h.service.Trend)
}

// CountryTrendImage returns a handler rendering the country averages in format.
func (h *DashboardHandler) CountryTrendImage(format plot.Format) http.HandlerFunc {
	return h.image(format, h.service.CountryTrend)
}

// GetSummary handles GET /v1/dashboard/summary - maximum value per pollutant.
func (h *DashboardHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	sel, ok := h.selection(w, r)
	if !ok {
		return
	}

	entries, err := h.service.Summary(r.Context(), sel)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	summary := models.Summary{Items: make([]models.SummaryEntry, len(entries))}
	for i, e := range entries {
		summary.Items[i] = toSummaryEntry(e)
	}
	response.JSON(w, r, http.StatusOK, summary)
}

type trendFunc func(ctx context.Context, sel airquality.Selection) (airquality.TrendResult, error)

func (h *DashboardHandler) image(format plot.Format, build trendFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.renderer == nil {
			response.NotFound(w, r, "chart rendering is disabled")
			return
		}

		result, ok := h.trend(w, r, build)
		if !ok {
			return
		}

		var buf bytes.Buffer
		if err := h.renderer.Render(&buf, result, format); err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Str("format", string(format)).Msg("failed to render chart")
			response.InternalError(w, r, "failed to render chart")
			return
		}
		response.Image(w, r, format.ContentType(), buf.Bytes())
	}
}

func (h *DashboardHandler) trend(w http.ResponseWriter, r *http.Request, build trendFunc) (airquality.TrendResult, bool) {
	sel, ok := h.selection(w, r)
	if !ok {
		return nil, false
	}

	result, err := build(r.Context(), sel)
	if err != nil {
		h.serviceError(w, r, err)
		return nil, false
	}
	return result, true
}

func (h *DashboardHandler) selection(w http.ResponseWriter, r *http.Request) (airquality.Selection, bool) {
	bounds := unbounded
	if ds, err := h.service.Dataset(); err == nil {
		if b, ok := ds.YearBounds(); ok {
			bounds = b
		}
	}

	sel, errs := parseSelection(r.URL.Query(), bounds)
	if len(errs) > 0 {
		response.BadRequest(w, r, "invalid query parameters", errs)
		return airquality.Selection{}, false
	}
	return sel, true
}

func (h *DashboardHandler) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, airquality.ErrDatasetNotLoaded):
		response.ServiceUnavailable(w, r, "air quality dataset is not loaded yet")
	case errors.Is(err, airquality.ErrInvalidRange):
		response.BadRequest(w, r, err.Error(), []models.FieldError{{
			Field:   "from",
			Message: "from must not be after to",
			Code:    models.CodeInvalidRange,
		}})
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("dashboard query failed")
		response.InternalError(w, r, "failed to query air quality data")
	}
}

func toRecord(rec airquality.Record) models.Record {
	return models.Record{
		Country:           rec.Country,
		City:              rec.City,
		Year:              rec.Year,
		PM25Concentration: lookup(rec.Concentrations, airquality.PollutantPM25),
		PM10Concentration: lookup(rec.Concentrations, airquality.PollutantPM10),
		NO2Concentration:  lookup(rec.Concentrations, airquality.PollutantNO2),
		PM25Coverage:      lookup(rec.Coverage, airquality.PollutantPM25),
		PM10Coverage:      lookup(rec.Coverage, airquality.PollutantPM10),
		NO2Coverage:       lookup(rec.Coverage, airquality.PollutantNO2),
		Latitude:          rec.Latitude,
		Longitude:         rec.Longitude,
	}
}

func lookup(m map[airquality.Pollutant]float64, p airquality.Pollutant) *float64 {
	v, ok := m[p]
	if !ok {
		return nil
	}
	return &v
}

func toTrend(result airquality.TrendResult) models.Trend {
	switch t := result.(type) {
	case *airquality.EmptySelection:
		return models.Trend{Kind: models.TrendKindEmptySelection, Message: t.Message}
	case *airquality.TrendChart:
		out := models.Trend{
			Kind:        models.TrendKindChart,
			Title:       t.Title,
			XAxisTitle:  t.XAxisTitle,
			YAxisTitle:  t.YAxisTitle,
			LegendTitle: t.LegendTitle,
			Series:      make([]models.TrendSeries, len(t.Series)),
		}
		for i, s := range t.Series {
			points := make([]models.TrendPoint, len(s.Points))
			for j, p := range s.Points {
				points[j] = models.TrendPoint{Year: p.Year, Value: p.Value}
			}
			out.Series[i] = models.TrendSeries{
				Name:       s.Name,
				City:       s.City,
				Pollutant:  string(s.Pollutant),
				Color:      s.Color,
				Dash:       string(s.Dash),
				ShowLegend: s.ShowLegend,
				Points:     points,
			}
		}
		for _, e := range t.Legend() {
			out.Legend = append(out.Legend, models.LegendEntry{Name: e.Name, Color: e.Color, Dash: string(e.Dash)})
		}
		return out
	}
	return models.Trend{}
}

func toSummaryEntry(e airquality.SummaryEntry) models.SummaryEntry {
	out := models.SummaryEntry{
		Pollutant: string(e.Pollutant),
		Status:    string(e.Status),
		Text:      e.Text(),
	}
	if e.Pollutant != "" {
		out.Label = e.Pollutant.Label()
	}
	if e.Status == airquality.SummaryAvailable {
		v, year := e.Max, e.Year
		out.Max = &v
		out.Year = &year
		if e.City != "" {
			city := e.City
			out.City = &city
		}
	}
	return out
}

func pollutantIDs(ps []airquality.Pollutant) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = string(p)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilInts(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}
