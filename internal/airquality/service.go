package airquality

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/breatheroute/whoair/internal/airquality"

// Source loads the full dataset from wherever it is stored.
type Source interface {
	// Name identifies the source in logs and status output.
	Name() string

	// Load reads and parses the complete dataset.
	Load(ctx context.Context) (*Dataset, error)
}

// ServiceConfig holds configuration for the air quality service.
type ServiceConfig struct {
	// Source is where the dataset is loaded from.
	Source Source

	// Logger for service operations.
	Logger zerolog.Logger

	// Metrics records dataset loads. Optional.
	Metrics *LoadMetrics
}

// Service owns the loaded dataset and answers dashboard queries against it.
// Queries read a snapshot of the current dataset; Reload swaps it atomically.
type Service struct {
	source  Source
	logger  zerolog.Logger
	metrics *LoadMetrics
	tracer  trace.Tracer

	mu          sync.RWMutex
	dataset     *Dataset
	loadedAt    time.Time
	lastError   string
	lastErrorAt time.Time
}

// NewService creates a new air quality service. The dataset is empty until
// Reload succeeds.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		source:  cfg.Source,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		tracer:  otel.Tracer(tracerName),
	}
}

// NewServiceWithDataset creates a service that serves ds without a source.
func NewServiceWithDataset(ds *Dataset, logger zerolog.Logger) *Service {
	s := NewService(ServiceConfig{Logger: logger})
	s.dataset = ds
	s.loadedAt = time.Now()
	return s
}

// Reload loads the dataset from the source. On failure the previously loaded
// dataset, if any, stays in service.
func (s *Service) Reload(ctx context.Context) error {
	if s.source == nil {
		return ErrSourceUnavailable
	}

	ctx, span := s.tracer.Start(ctx, "airquality.Reload",
		trace.WithAttributes(attribute.String("dataset.source", s.source.Name())))
	defer span.End()

	start := time.Now()
	ds, err := s.source.Load(ctx)
	duration := time.Since(start)

	if s.metrics != nil {
		s.metrics.RecordLoad(ctx, s.source.Name(), duration, ds.Len(), err)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dataset load failed")

		s.mu.Lock()
		s.lastError = err.Error()
		s.lastErrorAt = time.Now()
		hasData := s.dataset != nil
		s.mu.Unlock()

		if hasData {
			s.logger.Warn().
				Err(err).
				Str("source", s.source.Name()).
				Msg("dataset reload failed, keeping previous dataset")
		} else {
			s.logger.Error().
				Err(err).
				Str("source", s.source.Name()).
				Msg("dataset load failed")
		}
		return err
	}

	s.mu.Lock()
	s.dataset = ds
	s.loadedAt = time.Now()
	s.lastError = ""
	s.mu.Unlock()

	span.SetAttributes(attribute.Int("dataset.records", ds.Len()))
	s.logger.Info().
		Str("source", s.source.Name()).
		Int("records", ds.Len()).
		Dur("duration", duration).
		Msg("dataset loaded")

	return nil
}

// Dataset returns the current dataset.
func (s *Service) Dataset() (*Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dataset == nil {
		return nil, ErrDatasetNotLoaded
	}
	return s.dataset, nil
}

// DatasetStatus describes the loaded dataset.
type DatasetStatus struct {
	Loaded      bool
	Source      string
	LoadedAt    time.Time
	Records     int
	LastError   string
	LastErrorAt time.Time
}

// Status returns information about the loaded dataset.
func (s *Service) Status() DatasetStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := DatasetStatus{
		Loaded:      s.dataset != nil,
		LoadedAt:    s.loadedAt,
		Records:     s.dataset.Len(),
		LastError:   s.lastError,
		LastErrorAt: s.lastErrorAt,
	}
	if s.source != nil {
		status.Source = s.source.Name()
	}
	return status
}

// Options holds the values the dashboard offers for selection.
type Options struct {
	Cities            []string
	Countries         []string
	Pollutants        []PollutantInfo
	DefaultPollutants []Pollutant
	Years             YearRange
	YearMarks         []int
}

// yearMarkStep is the spacing of the labelled ticks on the year slider.
const yearMarkStep = 5

// Options returns the selectable cities, countries, pollutants and years.
func (s *Service) Options(ctx context.Context) (*Options, error) {
	_, span := s.tracer.Start(ctx, "airquality.Options")
	defer span.End()

	ds, err := s.Dataset()
	if err != nil {
		return nil, err
	}

	years, _ := ds.YearBounds()
	return &Options{
		Cities:            ds.Cities(),
		Countries:         ds.Countries(),
		Pollutants:        Pollutants(),
		DefaultPollutants: append([]Pollutant(nil), DefaultPollutants...),
		Years:             years,
		YearMarks:         years.Marks(yearMarkStep),
	}, nil
}

// Records returns one page of the raw dataset and the total record count.
func (s *Service) Records(ctx context.Context, offset, limit int) ([]Record, int, error) {
	_, span := s.tracer.Start(ctx, "airquality.Records")
	defer span.End()

	ds, err := s.Dataset()
	if err != nil {
		return nil, 0, err
	}
	return ds.Page(offset, limit), ds.Len(), nil
}

// Trend filters by the selected cities and years and builds the trend chart.
func (s *Service) Trend(ctx context.Context, sel Selection) (TrendResult, error) {
	_, span := s.tracer.Start(ctx, "airquality.Trend", trace.WithAttributes(selectionAttributes(sel)...))
	defer span.End()

	if len(sel.Cities) == 0 || len(sel.Pollutants) == 0 {
		return BuildTrend(nil, sel.Pollutants, sel.Cities), nil
	}

	ds, err := s.Dataset()
	if err != nil {
		return nil, err
	}

	subset, err := Filter(ds, Selection{Cities: sel.Cities, Years: sel.Years})
	if err != nil {
		return nil, recordSpanError(span, err)
	}
	return BuildTrend(subset, sel.Pollutants, sel.Cities), nil
}

// CountryTrend builds the per-year average chart for the selected country.
func (s *Service) CountryTrend(ctx context.Context, sel Selection) (TrendResult, error) {
	_, span := s.tracer.Start(ctx, "airquality.CountryTrend", trace.WithAttributes(selectionAttributes(sel)...))
	defer span.End()

	ds, err := s.Dataset()
	if err != nil {
		return nil, err
	}

	result, err := BuildCountryTrend(ds, sel.Pollutants, sel.Country, sel.Years)
	if err != nil {
		return nil, recordSpanError(span, err)
	}
	return result, nil
}

// Summary filters by the full selection and reports the maximum per pollutant.
func (s *Service) Summary(ctx context.Context, sel Selection) ([]SummaryEntry, error) {
	_, span := s.tracer.Start(ctx, "airquality.Summary", trace.WithAttributes(selectionAttributes(sel)...))
	defer span.End()

	ds, err := s.Dataset()
	if err != nil {
		return nil, err
	}

	subset, err := Filter(ds, sel)
	if err != nil {
		return nil, recordSpanError(span, err)
	}
	span.SetAttributes(attribute.Int("subset.records", subset.Len()))
	return BuildSummary(subset, sel.Pollutants), nil
}

func selectionAttributes(sel Selection) []attribute.KeyValue {
	pollutants := make([]string, len(sel.Pollutants))
	for i, p := range sel.Pollutants {
		pollutants[i] = string(p)
	}
	return []attribute.KeyValue{
		attribute.StringSlice("selection.cities", sel.Cities),
		attribute.String("selection.country", sel.Country),
		attribute.StringSlice("selection.pollutants", pollutants),
		attribute.Int("selection.year_start", sel.Years.Start),
		attribute.Int("selection.year_end", sel.Years.End),
	}
}

func recordSpanError(span trace.Span, err error) error {
	span.RecordError(err)
	if !errors.Is(err, ErrInvalidRange) {
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
