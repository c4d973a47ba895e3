package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/breatheroute/whoair/internal/airquality"
)

// Store persists a parsed dataset. *airquality.PostgresSource implements it.
type Store interface {
	Replace(ctx context.Context, ds *airquality.Dataset) (int64, error)
}

// Notifier tells API instances that a new dataset is available.
type Notifier interface {
	PublishReload(ctx context.Context) (string, error)
}

// ImporterConfig holds configuration for an Importer.
type ImporterConfig struct {
	Source airquality.Source
	Store  Store

	// Notifier is optional; without it API instances pick up the import on
	// their next scheduled reload.
	Notifier Notifier

	Logger zerolog.Logger
}

// Importer copies the workbook into the database.
type Importer struct {
	source   airquality.Source
	store    Store
	notifier Notifier
	logger   zerolog.Logger
}

// ImportResult describes one import.
type ImportResult struct {
	Records   int64
	MessageID string
	Duration  time.Duration
}

// NewImporter creates a new importer.
func NewImporter(cfg ImporterConfig) *Importer {
	return &Importer{
		source:   cfg.Source,
		store:    cfg.Store,
		notifier: cfg.Notifier,
		logger:   cfg.Logger,
	}
}

// Import loads the dataset, replaces the stored copy and notifies
// subscribers. A failed notification is reported but the import stands.
func (i *Importer) Import(ctx context.Context) (*ImportResult, error) {
	if i.source == nil || i.store == nil {
		return nil, errors.New("importer requires a source and a store")
	}
	start := time.Now()

	ds, err := i.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load from %s: %w", i.source.Name(), err)
	}
	if ds.Len() == 0 {
		return nil, fmt.Errorf("load from %s: %w", i.source.Name(), airquality.ErrDatasetNotLoaded)
	}

	n, err := i.store.Replace(ctx, ds)
	if err != nil {
		return nil, fmt.Errorf("store dataset: %w", err)
	}

	result := &ImportResult{Records: n}
	logger := i.logger.With().Str("source", i.source.Name()).Int64("records", n).Logger()

	if i.notifier != nil {
		id, err := i.notifier.PublishReload(ctx)
		if err != nil {
			result.Duration = time.Since(start)
			return result, fmt.Errorf("notify reload: %w", err)
		}
		result.MessageID = id
		logger = logger.With().Str("message_id", id).Logger()
	}

	result.Duration = time.Since(start)
	logger.Info().Dur("duration", result.Duration).Msg("dataset imported")
	return result, nil
}
