package climate

import (
	"math"
	"testing"
	"time"

	"github.com/lox/tokyotemps/internal/models"
)

func rec(year, month, day int, maxTemp, minTemp float64) models.DailyRecord {
	return models.DailyRecord{
		Date:    time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC),
		Year:    year,
		Month:   month,
		Day:     day,
		MaxTemp: maxTemp,
		MinTemp: minTemp,
	}
}

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func assertDiffConsistent(t *testing.T, label string, avgMax, avgMin, diff float64) {
	t.Helper()
	if !approx(diff, avgMax-avgMin, 0.05) {
		t.Errorf("%s: temp_diff = %v, want %v-%v", label, diff, avgMax, avgMin)
	}
}
