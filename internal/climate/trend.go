package climate

import (
	"errors"
	"fmt"
)

// ErrDegenerateTrend is returned when a series cannot support a regression:
// fewer than two distinct years, or no variance in year.
var ErrDegenerateTrend = errors.New("degenerate trend")

type Trend struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// At evaluates the fitted line for a year.
func (t Trend) At(year int) float64 {
	return t.Slope*float64(year) + t.Intercept
}

// PerCentury is the slope expressed in °C per 100 years.
func (t Trend) PerCentury() float64 {
	return t.Slope * 100
}

// LinearTrend fits avg_max_temp against year by ordinary least squares.
func LinearTrend(series []AnnualPoint) (Trend, error) {
	years := make(map[int]struct{}, len(series))
	var sumX, sumY, sumXY, sumXX float64
	for _, p := range series {
		x := float64(p.Year)
		y := p.AvgMaxTemp
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
		years[p.Year] = struct{}{}
	}
	if len(years) < 2 {
		return Trend{}, fmt.Errorf("%w: %d distinct years", ErrDegenerateTrend, len(years))
	}

	n := float64(len(series))
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return Trend{}, fmt.Errorf("%w: zero variance in year", ErrDegenerateTrend)
	}

	slope := (n*sumXY - sumX*sumY) / denom
	return Trend{
		Slope:     slope,
		Intercept: (sumY - slope*sumX) / n,
	}, nil
}
