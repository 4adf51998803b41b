package ingest

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestForecastResponse_Records(t *testing.T) {
	data, err := ParseForecastResponse([]byte(forecastResponse()))
	if err != nil {
		t.Fatalf("ParseForecastResponse: %v", err)
	}

	savedAt := time.Date(2024, 7, 31, 16, 0, 0, 0, time.UTC)
	records, parseErrors := data.Records(savedAt, "2024-08-01")
	if parseErrors != 0 {
		t.Errorf("parseErrors = %d, want 0", parseErrors)
	}
	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(records))
	}

	tests := []struct {
		date     string
		maxValid bool
		max      float64
		minValid bool
		min      float64
		tropical bool
	}{
		{"2024-08-01", true, 35, false, 0, false},
		{"2024-08-02", true, 34, true, 26, true},
		{"2024-08-03", true, 32, true, 24, false},
	}
	for i, tt := range tests {
		r := records[i]
		if r.ForecastDate != tt.date {
			t.Errorf("records[%d].ForecastDate = %q, want %q", i, r.ForecastDate, tt.date)
		}
		if r.SavedDate != "2024-08-01" {
			t.Errorf("records[%d].SavedDate = %q, want 2024-08-01", i, r.SavedDate)
		}
		if r.MaxTemp.Valid != tt.maxValid || r.MaxTemp.Float64 != tt.max {
			t.Errorf("records[%d].MaxTemp = %v, want %v", i, r.MaxTemp, tt.max)
		}
		if r.MinTemp.Valid != tt.minValid || r.MinTemp.Float64 != tt.min {
			t.Errorf("records[%d].MinTemp = %v, want %v", i, r.MinTemp, tt.min)
		}
		if r.IsTropicalNight != tt.tropical {
			t.Errorf("records[%d].IsTropicalNight = %v, want %v", i, r.IsTropicalNight, tt.tropical)
		}
	}

	if records[0].ChanceOfRain0006.String != "--%" {
		t.Errorf("ChanceOfRain0006 = %q, want --%%", records[0].ChanceOfRain0006.String)
	}
	if records[2].Wind.Valid {
		t.Errorf("Wind = %v, want NULL", records[2].Wind)
	}
	if records[1].ImageURL.String != "https://www.jma.go.jp/bosai/forecast/img/101.svg" {
		t.Errorf("ImageURL = %q", records[1].ImageURL.String)
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(records[1].RawData), &raw); err != nil {
		t.Fatalf("RawData is not JSON: %v", err)
	}
	if raw["date"] != "2024-08-02" {
		t.Errorf("RawData date = %v, want 2024-08-02", raw["date"])
	}
}

func TestForecastResponse_UnparseableTemperature(t *testing.T) {
	body := `{"forecasts": [{"date": "2024-08-01", "temperature": {"min": {"celsius": "n/a"}, "max": {"celsius": " 30 "}}}]}`
	data, err := ParseForecastResponse([]byte(body))
	if err != nil {
		t.Fatalf("ParseForecastResponse: %v", err)
	}

	records, parseErrors := data.Records(time.Now(), "2024-08-01")
	if parseErrors != 1 {
		t.Errorf("parseErrors = %d, want 1", parseErrors)
	}
	if records[0].MinTemp.Valid {
		t.Errorf("MinTemp = %v, want NULL", records[0].MinTemp)
	}
	if !records[0].MaxTemp.Valid || records[0].MaxTemp.Float64 != 30 {
		t.Errorf("MaxTemp = %v, want 30", records[0].MaxTemp)
	}
}

func TestParseForecastResponse_Invalid(t *testing.T) {
	_, err := ParseForecastResponse([]byte(`{"forecasts": [{"dateLabel": "今日"}]}`))
	if !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("err = %v, want ErrInvalidPayload", err)
	}
}
