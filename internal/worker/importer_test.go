package worker_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/whoair/internal/airquality"
	"github.com/breatheroute/whoair/internal/worker"
)

type staticSource struct {
	ds  *airquality.Dataset
	err error
}

func (s *staticSource) Name() string { return "static" }

func (s *staticSource) Load(context.Context) (*airquality.Dataset, error) {
	return s.ds, s.err
}

type memoryStore struct {
	stored *airquality.Dataset
	err    error
}

func (m *memoryStore) Replace(_ context.Context, ds *airquality.Dataset) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.stored = ds
	return int64(ds.Len()), nil
}

type recordingNotifier struct {
	calls int
	err   error
}

func (n *recordingNotifier) PublishReload(context.Context) (string, error) {
	n.calls++
	if n.err != nil {
		return "", n.err
	}
	return "msg-1", nil
}

func importDataset() *airquality.Dataset {
	return airquality.NewDataset([]airquality.Record{
		{Country: "Netherlands", City: "Amsterdam", Year: 2019, Concentrations: map[airquality.Pollutant]float64{airquality.PollutantPM25: 12}},
		{Country: "Germany", City: "Berlin", Year: 2020, Concentrations: map[airquality.Pollutant]float64{airquality.PollutantNO2: 30}},
	})
}

func TestImporter_Import(t *testing.T) {
	store := &memoryStore{}
	notifier := &recordingNotifier{}
	imp := worker.NewImporter(worker.ImporterConfig{
		Source:   &staticSource{ds: importDataset()},
		Store:    store,
		Notifier: notifier,
		Logger:   zerolog.Nop(),
	})

	result, err := imp.Import(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Records)
	assert.Equal(t, "msg-1", result.MessageID)
	assert.Equal(t, 1, notifier.calls)
	require.NotNil(t, store.stored)
	assert.Equal(t, 2, store.stored.Len())
}

func TestImporter_Import_WithoutNotifier(t *testing.T) {
	imp := worker.NewImporter(worker.ImporterConfig{
		Source: &staticSource{ds: importDataset()},
		Store:  &memoryStore{},
		Logger: zerolog.Nop(),
	})

	result, err := imp.Import(context.Background())

	require.NoError(t, err)
	assert.Empty(t, result.MessageID)
}

func TestImporter_Import_Failures(t *testing.T) {
	t.Run("load error", func(t *testing.T) {
		store := &memoryStore{}
		imp := worker.NewImporter(worker.ImporterConfig{
			Source: &staticSource{err: airquality.ErrSourceUnavailable},
			Store:  store,
			Logger: zerolog.Nop(),
		})

		_, err := imp.Import(context.Background())
		assert.ErrorIs(t, err, airquality.ErrSourceUnavailable)
		assert.Nil(t, store.stored)
	})

	t.Run("empty workbook is not stored", func(t *testing.T) {
		store := &memoryStore{}
		notifier := &recordingNotifier{}
		imp := worker.NewImporter(worker.ImporterConfig{
			Source:   &staticSource{ds: airquality.NewDataset(nil)},
			Store:    store,
			Notifier: notifier,
			Logger:   zerolog.Nop(),
		})

		_, err := imp.Import(context.Background())
		assert.ErrorIs(t, err, airquality.ErrDatasetNotLoaded)
		assert.Nil(t, store.stored)
		assert.Zero(t, notifier.calls)
	})

	t.Run("store error skips notification", func(t *testing.T) {
		notifier := &recordingNotifier{}
		imp := worker.NewImporter(worker.ImporterConfig{
			Source:   &staticSource{ds: importDataset()},
			Store:    &memoryStore{err: errors.New("connection refused")},
			Notifier: notifier,
			Logger:   zerolog.Nop(),
		})

		_, err := imp.Import(context.Background())
		assert.ErrorContains(t, err, "connection refused")
		assert.Zero(t, notifier.calls)
	})

	t.Run("notify error keeps import", func(t *testing.T) {
		store := &memoryStore{}
		imp := worker.NewImporter(worker.ImporterConfig{
			Source:   &staticSource{ds: importDataset()},
			Store:    store,
			Notifier: &recordingNotifier{err: errors.New("topic not found")},
			Logger:   zerolog.Nop(),
		})

		result, err := imp.Import(context.Background())
		require.Error(t, err)
		require.NotNil(t, result)
		assert.Equal(t, int64(2), result.Records)
		assert.NotNil(t, store.stored)
	})

	t.Run("missing store", func(t *testing.T) {
		imp := worker.NewImporter(worker.ImporterConfig{Source: &staticSource{ds: importDataset()}, Logger: zerolog.Nop()})
		_, err := imp.Import(context.Background())
		assert.Error(t, err)
	})
}
