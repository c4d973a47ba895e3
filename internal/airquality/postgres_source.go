package airquality

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSource loads the dataset from the who_air_quality table
// (see internal/database/migrations). The worker fills the table
// with Replace.
type PostgresSource struct {
	pool *pgxpool.Pool
}

// NewPostgresSource creates a new PostgreSQL dataset source.
func NewPostgresSource(pool *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

// Name implements Source.
func (s *PostgresSource) Name() string {
	return "postgres"
}

// Load implements Source. Rows missing country, city or year are skipped.
func (s *PostgresSource) Load(ctx context.Context) (*Dataset, error) {
	query := `
		SELECT country_name, city, year,
		       pm25_concentration, pm10_concentration, no2_concentration,
		       pm25_tempcov, pm10_tempcov, no2_tempcov,
		       latitude, longitude
		FROM who_air_quality
		ORDER BY id
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query who_air_quality: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			country, city       *string
			year                *int32
			pm25, pm10, no2     *float64
			pm25Cov, pm10Cov    *float64
			no2Cov              *float64
			latitude, longitude *float64
		)

		if err := rows.Scan(
			&country, &city, &year,
			&pm25, &pm10, &no2,
			&pm25Cov, &pm10Cov, &no2Cov,
			&latitude, &longitude,
		); err != nil {
			return nil, fmt.Errorf("scan who_air_quality row: %w", err)
		}

		if country == nil || *country == "" || city == nil || *city == "" || year == nil {
			continue
		}

		rec := Record{
			Country:        *country,
			City:           *city,
			Year:           int(*year),
			Concentrations: make(map[Pollutant]float64, 3),
			Coverage:       make(map[Pollutant]float64, 3),
			Latitude:       latitude,
			Longitude:      longitude,
		}
		setIfPresent(rec.Concentrations, PollutantPM25, pm25)
		setIfPresent(rec.Concentrations, PollutantPM10, pm10)
		setIfPresent(rec.Concentrations, PollutantNO2, no2)
		setIfPresent(rec.Coverage, PollutantPM25, pm25Cov)
		setIfPresent(rec.Coverage, PollutantPM10, pm10Cov)
		setIfPresent(rec.Coverage, PollutantNO2, no2Cov)

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate who_air_quality: %w", err)
	}

	return NewDataset(records), nil
}

func setIfPresent(m map[Pollutant]float64, p Pollutant, v *float64) {
	if v != nil {
		m[p] = *v
	}
}

// Replace swaps the table contents for ds in one transaction, so readers
// see either the old or the new dataset. It returns the rows written.
func (s *PostgresSource) Replace(ctx context.Context, ds *Dataset) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, `DELETE FROM who_air_quality`); err != nil {
		return 0, fmt.Errorf("clear who_air_quality: %w", err)
	}

	records := ds.Records()
	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"who_air_quality"},
		[]string{
			"country_name", "city", "year",
			"pm25_concentration", "pm10_concentration", "no2_concentration",
			"pm25_tempcov", "pm10_tempcov", "no2_tempcov",
			"latitude", "longitude",
		},
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			rec := records[i]
			return []any{
				rec.Country, rec.City, int32(rec.Year), //nolint:gosec // WHO years fit in int32
				valueOrNil(rec.Concentrations, PollutantPM25),
				valueOrNil(rec.Concentrations, PollutantPM10),
				valueOrNil(rec.Concentrations, PollutantNO2),
				valueOrNil(rec.Coverage, PollutantPM25),
				valueOrNil(rec.Coverage, PollutantPM10),
				valueOrNil(rec.Coverage, PollutantNO2),
				rec.Latitude, rec.Longitude,
			}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copy into who_air_quality: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

func valueOrNil(m map[Pollutant]float64, p Pollutant) *float64 {
	if v, ok := m[p]; ok {
		return &v
	}
	return nil
}
