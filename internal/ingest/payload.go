package ingest

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/lox/tokyotemps/internal/models"
)

var validate = validator.New()

// ForecastResponse is the city forecast document returned by the API.
// Everything below the forecast date may be null or missing.
type ForecastResponse struct {
	PublicTime          string            `json:"publicTime"`
	PublicTimeFormatted string            `json:"publicTimeFormatted"`
	Title               string            `json:"title"`
	Description         *Description      `json:"description"`
	Forecasts           []ForecastEntry   `json:"forecasts" validate:"required,min=1,dive"`
	Location            *ForecastLocation `json:"location"`

	rawForecasts []json.RawMessage
}

type Description struct {
	PublicTime   string  `json:"publicTime"`
	HeadlineText *string `json:"headlineText"`
	BodyText     *string `json:"bodyText"`
	Text         *string `json:"text"`
}

type ForecastLocation struct {
	Area       string `json:"area"`
	Prefecture string `json:"prefecture"`
	District   string `json:"district"`
	City       string `json:"city"`
}

type ForecastEntry struct {
	Date         string       `json:"date" validate:"required,datetime=2006-01-02"`
	DateLabel    *string      `json:"dateLabel"`
	Telop        *string      `json:"telop"`
	Detail       Detail       `json:"detail"`
	Temperature  Temperature  `json:"temperature"`
	ChanceOfRain ChanceOfRain `json:"chanceOfRain"`
	Image        Image        `json:"image"`
}

type Detail struct {
	Weather *string `json:"weather"`
	Wind    *string `json:"wind"`
	Wave    *string `json:"wave"`
}

type Temperature struct {
	Min TemperatureValue `json:"min"`
	Max TemperatureValue `json:"max"`
}

// TemperatureValue carries string-encoded numbers, e.g. "31".
type TemperatureValue struct {
	Celsius    *string `json:"celsius"`
	Fahrenheit *string `json:"fahrenheit"`
}

type ChanceOfRain struct {
	T00_06 *string `json:"T00_06"`
	T06_12 *string `json:"T06_12"`
	T12_18 *string `json:"T12_18"`
	T18_24 *string `json:"T18_24"`
}

type Image struct {
	Title  *string `json:"title"`
	URL    *string `json:"url"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
}

// ParseForecastResponse decodes and validates a forecast document. Errors
// wrap ErrInvalidPayload.
func ParseForecastResponse(body []byte) (*ForecastResponse, error) {
	var data ForecastResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("%w: unmarshal: %v", ErrInvalidPayload, err)
	}
	if err := validate.Struct(&data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	var raw struct {
		Forecasts []json.RawMessage `json:"forecasts"`
	}
	if err := json.Unmarshal(body, &raw); err == nil {
		data.rawForecasts = raw.Forecasts
	}
	return &data, nil
}

// Records converts the document into store rows. Temperatures that are present
// but not numeric are stored as NULL and counted in parseErrors.
func (r *ForecastResponse) Records(savedAt time.Time, savedDate string) (records []models.ForecastRecord, parseErrors int) {
	records = make([]models.ForecastRecord, 0, len(r.Forecasts))
	for i, f := range r.Forecasts {
		rec := models.ForecastRecord{
			SavedAt:          savedAt,
			SavedDate:        savedDate,
			ForecastDate:     f.Date,
			DateLabel:        nullString(f.DateLabel),
			Telop:            nullString(f.Telop),
			ChanceOfRain0006: nullString(f.ChanceOfRain.T00_06),
			ChanceOfRain0612: nullString(f.ChanceOfRain.T06_12),
			ChanceOfRain1218: nullString(f.ChanceOfRain.T12_18),
			ChanceOfRain1824: nullString(f.ChanceOfRain.T18_24),
			WeatherDetail:    nullString(f.Detail.Weather),
			Wind:             nullString(f.Detail.Wind),
			Wave:             nullString(f.Detail.Wave),
			ImageTitle:       nullString(f.Image.Title),
			ImageURL:         nullString(f.Image.URL),
		}

		var ok bool
		if rec.MaxTemp, ok = parseCelsius(f.Temperature.Max.Celsius); !ok {
			parseErrors++
		}
		if rec.MinTemp, ok = parseCelsius(f.Temperature.Min.Celsius); !ok {
			parseErrors++
		}
		rec.IsTropicalNight = models.IsTropical(rec.MinTemp)

		if i < len(r.rawForecasts) {
			rec.RawData = string(r.rawForecasts[i])
		} else if b, err := json.Marshal(f); err == nil {
			rec.RawData = string(b)
		}

		records = append(records, rec)
	}
	return records, parseErrors
}

// parseCelsius reports ok=false only for a present value that does not parse.
func parseCelsius(s *string) (sql.NullFloat64, bool) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return sql.NullFloat64{}, true
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(*s), 64)
	if err != nil {
		return sql.NullFloat64{}, false
	}
	return sql.NullFloat64{Float64: v, Valid: true}, true
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
