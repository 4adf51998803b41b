package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lox/tokyotemps/internal/models"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS weather_forecasts (
    id BIGSERIAL PRIMARY KEY,
    saved_at TIMESTAMPTZ NOT NULL,
    saved_date TEXT NOT NULL,
    forecast_date TEXT NOT NULL,
    date_label TEXT,
    telop TEXT,
    max_temp DOUBLE PRECISION,
    min_temp DOUBLE PRECISION,
    is_tropical_night BOOLEAN NOT NULL DEFAULT FALSE,
    chance_of_rain_00_06 TEXT,
    chance_of_rain_06_12 TEXT,
    chance_of_rain_12_18 TEXT,
    chance_of_rain_18_24 TEXT,
    weather_detail TEXT,
    wind TEXT,
    wave TEXT,
    image_title TEXT,
    image_url TEXT,
    raw_data TEXT
);

CREATE INDEX IF NOT EXISTS idx_saved_date ON weather_forecasts(saved_date);
CREATE INDEX IF NOT EXISTS idx_forecast_date ON weather_forecasts(forecast_date);
`

// PGStore keeps forecasts in PostgreSQL. It carries no ingest audit tables.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dsn string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &PGStore{pool: pool}, nil
}

func (s *PGStore) Close() {
	s.pool.Close()
}

// Migrate creates the forecast table if it does not exist.
func (s *PGStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, pgSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *PGStore) ReplaceForecasts(ctx context.Context, savedDate string, forecasts []models.ForecastRecord) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM weather_forecasts WHERE saved_date = $1`, savedDate); err != nil {
		return 0, fmt.Errorf("delete forecasts for %s: %w", savedDate, err)
	}

	batch := &pgx.Batch{}
	for _, f := range forecasts {
		batch.Queue(`
			INSERT INTO weather_forecasts (
				saved_at, saved_date, forecast_date, date_label, telop,
				max_temp, min_temp, is_tropical_night,
				chance_of_rain_00_06, chance_of_rain_06_12, chance_of_rain_12_18, chance_of_rain_18_24,
				weather_detail, wind, wave, image_title, image_url, raw_data
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
			f.SavedAt.UTC(), savedDate, f.ForecastDate, f.DateLabel, f.Telop,
			f.MaxTemp, f.MinTemp, models.IsTropical(f.MinTemp),
			f.ChanceOfRain0006, f.ChanceOfRain0612, f.ChanceOfRain1218, f.ChanceOfRain1824,
			f.WeatherDetail, f.Wind, f.Wave, f.ImageTitle, f.ImageURL, f.RawData,
		)
	}
	br := tx.SendBatch(ctx, batch)
	for _, f := range forecasts {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return 0, fmt.Errorf("insert forecast %s: %w", f.ForecastDate, err)
		}
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(forecasts), nil
}

func (s *PGStore) GetSavedForecasts(ctx context.Context, date string) ([]models.ForecastRecord, error) {
	if date == "" {
		latest, err := s.LatestSavedDate(ctx)
		if err != nil {
			return nil, err
		}
		if latest == "" {
			return []models.ForecastRecord{}, nil
		}
		date = latest
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+forecastColumns+`
		FROM weather_forecasts
		WHERE saved_date = $1
		ORDER BY forecast_date, id
	`, date)
	if err != nil {
		return nil, fmt.Errorf("query forecasts: %w", err)
	}
	defer rows.Close()

	forecasts := []models.ForecastRecord{}
	for rows.Next() {
		var f models.ForecastRecord
		var rawData sql.NullString
		if err := rows.Scan(&f.ID, &f.SavedAt, &f.SavedDate, &f.ForecastDate, &f.DateLabel, &f.Telop,
			&f.MaxTemp, &f.MinTemp, &f.IsTropicalNight,
			&f.ChanceOfRain0006, &f.ChanceOfRain0612, &f.ChanceOfRain1218, &f.ChanceOfRain1824,
			&f.WeatherDetail, &f.Wind, &f.Wave, &f.ImageTitle, &f.ImageURL, &rawData); err != nil {
			return nil, fmt.Errorf("scan forecast: %w", err)
		}
		f.RawData = rawData.String
		forecasts = append(forecasts, f)
	}
	return forecasts, rows.Err()
}

func (s *PGStore) LatestSavedDate(ctx context.Context) (string, error) {
	var latest sql.NullString
	if err := s.pool.QueryRow(ctx, `SELECT MAX(saved_date) FROM weather_forecasts`).Scan(&latest); err != nil {
		return "", fmt.Errorf("query latest saved date: %w", err)
	}
	return latest.String, nil
}

func (s *PGStore) GetSavedDates(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT saved_date FROM weather_forecasts ORDER BY saved_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("query saved dates: %w", err)
	}
	dates, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect saved dates: %w", err)
	}
	if dates == nil {
		dates = []string{}
	}
	return dates, nil
}
