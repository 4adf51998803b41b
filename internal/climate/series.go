// Package climate turns the historical daily corpus into derived series and
// statistics. Every function is pure: inputs are only read and results are
// freshly allocated, so callers may share one corpus across goroutines.
package climate

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lox/tokyotemps/internal/models"
)

type AnnualPoint struct {
	Year       int     `json:"year"`
	AvgMaxTemp float64 `json:"avg_max_temp"`
	AvgMinTemp float64 `json:"avg_min_temp"`
	TempDiff   float64 `json:"temp_diff"`
}

type MonthlyPoint struct {
	Month      int     `json:"month"`
	MonthName  string  `json:"month_name"`
	AvgMaxTemp float64 `json:"avg_max_temp"`
	AvgMinTemp float64 `json:"avg_min_temp"`
	TempDiff   float64 `json:"temp_diff"`
}

type MonthlyYearlyPoint struct {
	Year       int     `json:"year"`
	Month      int     `json:"month"`
	MonthName  string  `json:"month_name"`
	AvgMaxTemp float64 `json:"avg_max_temp"`
	AvgMinTemp float64 `json:"avg_min_temp"`
	TempDiff   float64 `json:"temp_diff"`
}

type DailyPoint struct {
	DayOfYear  int     `json:"day_of_year"`
	Month      int     `json:"month"`
	Day        int     `json:"day"`
	DateLabel  string  `json:"date_label"`
	AvgMaxTemp float64 `json:"avg_max_temp"`
	AvgMinTemp float64 `json:"avg_min_temp"`
	TempDiff   float64 `json:"temp_diff"`
}

// Round1 rounds to one decimal place, halves away from zero. Rounding goes
// through a decimal representation so values like 0.15 are not pulled down by
// binary float error.
func Round1(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	f, _ := decimal.NewFromFloat(x).Round(1).Float64()
	return f
}

// MonthName returns the English month name, or "" for a month outside 1-12.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return time.Month(month).String()
}

// tempSum accumulates max/min temperatures for one group.
type tempSum struct {
	max, min float64
	n        int
}

func (s *tempSum) add(r models.DailyRecord) {
	s.max += r.MaxTemp
	s.min += r.MinTemp
	s.n++
}

func (s tempSum) mean() (avgMax, avgMin float64) {
	return s.max / float64(s.n), s.min / float64(s.n)
}

// rounded returns the group means rounded to one decimal and their difference.
// The difference is taken from the rounded pair so it always agrees with the
// values it is published alongside.
func (s tempSum) rounded() (avgMax, avgMin, diff float64) {
	mx, mn := s.mean()
	avgMax, avgMin = Round1(mx), Round1(mn)
	return avgMax, avgMin, Round1(avgMax - avgMin)
}
