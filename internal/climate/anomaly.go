package climate

import "math"

// Direction of an observation relative to its normal.
type Direction string

const (
	Above Direction = "above"
	Below Direction = "below"
	Equal Direction = "equal"
)

const (
	// equalTolerance is the |delta| under which a day counts as equal to normal.
	equalTolerance = 0.1
	// sigmaThreshold is how many standard deviations mark an extreme day.
	sigmaThreshold = 2.0
	// DefaultForecastThreshold is the flat °C margin used for forecast vs
	// historical-average comparisons.
	DefaultForecastThreshold = 2.0
)

// Comparison classifies one observed max_temp against a calendar-day normal.
type Comparison struct {
	Observed  float64   `json:"observed"`
	Mean      float64   `json:"mean"`
	Delta     float64   `json:"delta"`
	Direction Direction `json:"direction"`
	Extreme   bool      `json:"extreme"`
}

// CompareToNormal applies the standard deviation rule: a day is extreme when
// it is above or below normal by at least two standard deviations. Days within
// the equality tolerance are never extreme.
func CompareToNormal(observed float64, normal NormalStat) Comparison {
	delta := observed - normal.Mean
	c := Comparison{Observed: observed, Mean: normal.Mean, Delta: delta}
	switch {
	case math.Abs(delta) < equalTolerance:
		c.Direction = Equal
	case delta > 0:
		c.Direction = Above
		c.Extreme = delta >= sigmaThreshold*normal.StandardDeviation
	default:
		c.Direction = Below
		c.Extreme = delta <= -sigmaThreshold*normal.StandardDeviation
	}
	return c
}

// FlatThreshold is the forecast comparison policy: a forecast is anomalous
// when it exceeds the historical average by at least the threshold in °C.
// It is intentionally independent of the standard deviation rule.
type FlatThreshold float64

// Exceeds reports whether forecast is at least t degrees above historical.
func (t FlatThreshold) Exceeds(forecast, historical float64) bool {
	return forecast-historical >= float64(t)
}
