package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lox/tokyotemps/internal/models"
)

const forecastColumns = `id, saved_at, saved_date, forecast_date, date_label, telop,
	max_temp, min_temp, is_tropical_night,
	chance_of_rain_00_06, chance_of_rain_06_12, chance_of_rain_12_18, chance_of_rain_18_24,
	weather_detail, wind, wave, image_title, image_url, raw_data`

// ReplaceForecasts deletes every row stored for savedDate and inserts the given
// forecasts in one transaction. Returns the number of rows inserted.
func (s *Store) ReplaceForecasts(ctx context.Context, savedDate string, forecasts []models.ForecastRecord) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM weather_forecasts WHERE saved_date = ?`, savedDate); err != nil {
		return 0, fmt.Errorf("delete forecasts for %s: %w", savedDate, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO weather_forecasts (
			saved_at, saved_date, forecast_date, date_label, telop,
			max_temp, min_temp, is_tropical_night,
			chance_of_rain_00_06, chance_of_rain_06_12, chance_of_rain_12_18, chance_of_rain_18_24,
			weather_detail, wind, wave, image_title, image_url, raw_data
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range forecasts {
		if _, err := stmt.ExecContext(ctx,
			f.SavedAt.UTC(), savedDate, f.ForecastDate, f.DateLabel, f.Telop,
			f.MaxTemp, f.MinTemp, models.IsTropical(f.MinTemp),
			f.ChanceOfRain0006, f.ChanceOfRain0612, f.ChanceOfRain1218, f.ChanceOfRain1824,
			f.WeatherDetail, f.Wind, f.Wave, f.ImageTitle, f.ImageURL, f.RawData,
		); err != nil {
			return 0, fmt.Errorf("insert forecast %s: %w", f.ForecastDate, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(forecasts), nil
}

// GetSavedForecasts returns the rows saved on date, or the rows of the most
// recent fetch run when date is empty. Ordered by forecast date.
func (s *Store) GetSavedForecasts(ctx context.Context, date string) ([]models.ForecastRecord, error) {
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

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+forecastColumns+`
		FROM weather_forecasts
		WHERE saved_date = ?
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

// LatestSavedDate returns the most recent saved_date, or "" if nothing has
// been saved.
func (s *Store) LatestSavedDate(ctx context.Context) (string, error) {
	var latest sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(saved_date) FROM weather_forecasts`).Scan(&latest); err != nil {
		return "", fmt.Errorf("query latest saved date: %w", err)
	}
	return latest.String, nil
}

// GetSavedDates returns the distinct saved dates, newest first.
func (s *Store) GetSavedDates(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT saved_date FROM weather_forecasts ORDER BY saved_date DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query saved dates: %w", err)
	}
	defer rows.Close()

	dates := []string{}
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}
