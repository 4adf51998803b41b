package api

import (
	"database/sql"
	"time"

	"github.com/lox/tokyotemps/internal/climate"
	"github.com/lox/tokyotemps/internal/models"
)

// ForecastView is the JSON shape of a saved forecast row.
type ForecastView struct {
	ID               int64     `json:"id,omitempty"`
	SavedAt          time.Time `json:"saved_at"`
	SavedDate        string    `json:"saved_date"`
	ForecastDate     string    `json:"forecast_date"`
	DateLabel        *string   `json:"date_label"`
	Telop            *string   `json:"telop"`
	MaxTemp          *float64  `json:"max_temp"`
	MinTemp          *float64  `json:"min_temp"`
	IsTropicalNight  bool      `json:"is_tropical_night"`
	ChanceOfRain0006 *string   `json:"chance_of_rain_00_06"`
	ChanceOfRain0612 *string   `json:"chance_of_rain_06_12"`
	ChanceOfRain1218 *string   `json:"chance_of_rain_12_18"`
	ChanceOfRain1824 *string   `json:"chance_of_rain_18_24"`
	WeatherDetail    *string   `json:"weather_detail"`
	Wind             *string   `json:"wind"`
	Wave             *string   `json:"wave"`
	ImageTitle       *string   `json:"image_title"`
	ImageURL         *string   `json:"image_url"`
	RawData          string    `json:"raw_data,omitempty"`
}

func newForecastView(f models.ForecastRecord) ForecastView {
	return ForecastView{
		ID:               f.ID,
		SavedAt:          f.SavedAt,
		SavedDate:        f.SavedDate,
		ForecastDate:     f.ForecastDate,
		DateLabel:        strPtr(f.DateLabel),
		Telop:            strPtr(f.Telop),
		MaxTemp:          floatPtr(f.MaxTemp),
		MinTemp:          floatPtr(f.MinTemp),
		IsTropicalNight:  f.IsTropicalNight,
		ChanceOfRain0006: strPtr(f.ChanceOfRain0006),
		ChanceOfRain0612: strPtr(f.ChanceOfRain0612),
		ChanceOfRain1218: strPtr(f.ChanceOfRain1218),
		ChanceOfRain1824: strPtr(f.ChanceOfRain1824),
		WeatherDetail:    strPtr(f.WeatherDetail),
		Wind:             strPtr(f.Wind),
		Wave:             strPtr(f.Wave),
		ImageTitle:       strPtr(f.ImageTitle),
		ImageURL:         strPtr(f.ImageURL),
		RawData:          f.RawData,
	}
}

func forecastViews(records []models.ForecastRecord) []ForecastView {
	out := make([]ForecastView, 0, len(records))
	for _, f := range records {
		out = append(out, newForecastView(f))
	}
	return out
}

func forecastDays(records []models.ForecastRecord) []climate.ForecastDay {
	out := make([]climate.ForecastDay, 0, len(records))
	for _, f := range records {
		out = append(out, climate.ForecastDay{
			Date:    f.ForecastDate,
			Telop:   f.Telop.String,
			MaxTemp: floatPtr(f.MaxTemp),
			MinTemp: floatPtr(f.MinTemp),
		})
	}
	return out
}

// IngestRunView flattens the nullable audit columns.
type IngestRunView struct {
	RunID         string     `json:"run_id"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	Endpoint      string     `json:"endpoint"`
	HTTPStatus    *int64     `json:"http_status,omitempty"`
	ResponseBytes *int64     `json:"response_bytes,omitempty"`
	RecordsStored *int64     `json:"records_stored,omitempty"`
	ParseErrors   *int64     `json:"parse_errors,omitempty"`
	Success       bool       `json:"success"`
	Error         *string    `json:"error,omitempty"`
}

type TrendView struct {
	Slope      float64 `json:"slope"`
	Intercept  float64 `json:"intercept"`
	PerCentury float64 `json:"per_century"`
	FirstYear  int     `json:"first_year"`
	LastYear   int     `json:"last_year"`
}

func strPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

func intPtr(i sql.NullInt64) *int64 {
	if !i.Valid {
		return nil
	}
	v := i.Int64
	return &v
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
