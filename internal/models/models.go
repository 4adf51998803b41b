package models

import (
	"database/sql"
	"fmt"
	"time"
)

// DailyRecord is one day of the historical corpus. Records are never mutated
// after loading; MaxTemp >= MinTemp is expected but not checked.
type DailyRecord struct {
	Date    time.Time `json:"date"`
	Year    int       `json:"year"`
	Month   int       `json:"month"`
	Day     int       `json:"day"`
	MaxTemp float64   `json:"max_temp"`
	MinTemp float64   `json:"min_temp"`
}

// MonthDay returns the "MM-DD" key used for calendar-day statistics.
func (r DailyRecord) MonthDay() string {
	return MonthDayKey(r.Month, r.Day)
}

// MonthDayKey formats a month/day pair as "MM-DD".
func MonthDayKey(month, day int) string {
	return fmt.Sprintf("%02d-%02d", month, day)
}

// TropicalNightThreshold is the minimum temperature (°C) at or above which a
// night counts as tropical.
const TropicalNightThreshold = 25.0

type ForecastRecord struct {
	ID               int64
	SavedAt          time.Time
	SavedDate        string // YYYY-MM-DD of the fetch run
	ForecastDate     string // YYYY-MM-DD
	DateLabel        sql.NullString
	Telop            sql.NullString
	MaxTemp          sql.NullFloat64
	MinTemp          sql.NullFloat64
	IsTropicalNight  bool
	ChanceOfRain0006 sql.NullString
	ChanceOfRain0612 sql.NullString
	ChanceOfRain1218 sql.NullString
	ChanceOfRain1824 sql.NullString
	WeatherDetail    sql.NullString
	Wind             sql.NullString
	Wave             sql.NullString
	ImageTitle       sql.NullString
	ImageURL         sql.NullString
	RawData          string
}

// IsTropical reports whether a nullable minimum temperature marks a tropical night.
func IsTropical(minTemp sql.NullFloat64) bool {
	return minTemp.Valid && minTemp.Float64 >= TropicalNightThreshold
}
