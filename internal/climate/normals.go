package climate

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lox/tokyotemps/internal/models"
)

// Baseline selects the years a normal is computed over. The zero value is
// invalid; use AllHistory, Last30Years or YearRange.
type Baseline struct {
	From, To int
	all      bool
}

// AllHistory covers every year in the corpus.
var AllHistory = Baseline{all: true}

// Last30Years is the fixed 1995-2024 window.
var Last30Years = YearRange(1995, 2024)

// YearRange is an inclusive range of years.
func YearRange(from, to int) Baseline {
	return Baseline{From: from, To: to}
}

func (b Baseline) IsAll() bool { return b.all }

// Contains reports whether year falls inside the window.
func (b Baseline) Contains(year int) bool {
	return b.all || (year >= b.From && year <= b.To)
}

func (b Baseline) String() string {
	if b.all {
		return "all"
	}
	return fmt.Sprintf("%d-%d", b.From, b.To)
}

// ParseBaseline accepts "all" (or "145years"), "30years", or "YYYY-YYYY".
// An empty string selects Last30Years.
func ParseBaseline(s string) (Baseline, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "30years", "30y":
		return Last30Years, nil
	case "all", "145years", "full":
		return AllHistory, nil
	}
	from, to, ok := strings.Cut(s, "-")
	if !ok {
		return Baseline{}, fmt.Errorf("invalid baseline %q", s)
	}
	f, err := strconv.Atoi(strings.TrimSpace(from))
	if err != nil {
		return Baseline{}, fmt.Errorf("invalid baseline start %q: %w", from, err)
	}
	t, err := strconv.Atoi(strings.TrimSpace(to))
	if err != nil {
		return Baseline{}, fmt.Errorf("invalid baseline end %q: %w", to, err)
	}
	if f > t {
		return Baseline{}, fmt.Errorf("invalid baseline %q: start after end", s)
	}
	return YearRange(f, t), nil
}

// NormalStat is the population mean and standard deviation of max_temp for
// one calendar day.
type NormalStat struct {
	Mean              float64 `json:"mean"`
	StandardDeviation float64 `json:"standardDeviation"`
	Count             int     `json:"count"`
}

// Normals maps "MM-DD" keys to their statistics.
type Normals map[string]NormalStat

// ComputeNormalStatistics computes per calendar day statistics of max_temp over
// the records inside the baseline window. Standard deviation divides by the
// sample count, not count-1.
func ComputeNormalStatistics(records []models.DailyRecord, baseline Baseline) Normals {
	values := make(map[string][]float64)
	for _, r := range records {
		if !baseline.Contains(r.Year) {
			continue
		}
		key := r.MonthDay()
		values[key] = append(values[key], r.MaxTemp)
	}

	normals := make(Normals, len(values))
	for key, vs := range values {
		var sum float64
		for _, v := range vs {
			sum += v
		}
		mean := sum / float64(len(vs))

		var sq float64
		for _, v := range vs {
			sq += (v - mean) * (v - mean)
		}
		normals[key] = NormalStat{
			Mean:              mean,
			StandardDeviation: math.Sqrt(sq / float64(len(vs))),
			Count:             len(vs),
		}
	}
	return normals
}
