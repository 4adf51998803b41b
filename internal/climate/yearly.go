package climate

import (
	"sort"

	"github.com/lox/tokyotemps/internal/models"
)

// Thresholds for the glossary day categories, in °C of daily maximum.
const (
	ExtremelyHotDay = 35.0
	VeryHotDay      = 30.0
	SummerDay       = 25.0
)

// Category names the hottest glossary class a daily maximum reaches.
type Category string

const (
	CategoryNone         Category = ""
	CategoryExtremelyHot Category = "extremely_hot"
	CategoryVeryHot      Category = "very_hot"
	CategorySummer       Category = "summer"
)

func Categorize(maxTemp float64) Category {
	switch {
	case maxTemp >= ExtremelyHotDay:
		return CategoryExtremelyHot
	case maxTemp >= VeryHotDay:
		return CategoryVeryHot
	case maxTemp >= SummerDay:
		return CategorySummer
	default:
		return CategoryNone
	}
}

// HotDays counts days per category. Categories are exclusive: a 36°C day is
// only counted as extremely hot.
type HotDays struct {
	Year           int `json:"year"`
	ExtremelyHot   int `json:"extremely_hot"`
	VeryHot        int `json:"very_hot"`
	Summer         int `json:"summer"`
	TropicalNights int `json:"tropical_nights"`
	Days           int `json:"days"`
}

func (h *HotDays) add(r models.DailyRecord) {
	switch Categorize(r.MaxTemp) {
	case CategoryExtremelyHot:
		h.ExtremelyHot++
	case CategoryVeryHot:
		h.VeryHot++
	case CategorySummer:
		h.Summer++
	}
	if r.MinTemp >= models.TropicalNightThreshold {
		h.TropicalNights++
	}
	h.Days++
}

// HotDayCounts tallies hot day categories and tropical nights for each year
// present in records, sorted by year.
func HotDayCounts(records []models.DailyRecord) []HotDays {
	byYear := make(map[int]*HotDays)
	for _, r := range records {
		h, ok := byYear[r.Year]
		if !ok {
			h = &HotDays{Year: r.Year}
			byYear[r.Year] = h
		}
		h.add(r)
	}

	out := make([]HotDays, 0, len(byYear))
	for _, h := range byYear {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// YearStat summarises one year for rankings. Means are unrounded.
type YearStat struct {
	Year           int     `json:"year"`
	AvgMaxTemp     float64 `json:"avg_max_temp"`
	AvgMinTemp     float64 `json:"avg_min_temp"`
	ExtremeHotDays int     `json:"extreme_hot_days"`
	TropicalNights int     `json:"tropical_nights"`
	TempRange      float64 `json:"temp_range"`
	// Deviation is |AvgMaxTemp - overall mean max| across the whole input.
	Deviation float64 `json:"deviation"`
}

func YearlyStats(records []models.DailyRecord) []YearStat {
	if len(records) == 0 {
		return []YearStat{}
	}

	var overall float64
	sums := make(map[int]*tempSum)
	counts := make(map[int]*HotDays)
	for _, r := range records {
		overall += r.MaxTemp
		s, ok := sums[r.Year]
		if !ok {
			s = &tempSum{}
			sums[r.Year] = s
			counts[r.Year] = &HotDays{Year: r.Year}
		}
		s.add(r)
		counts[r.Year].add(r)
	}
	overall /= float64(len(records))

	out := make([]YearStat, 0, len(sums))
	for year, s := range sums {
		mx, mn := s.mean()
		dev := mx - overall
		if dev < 0 {
			dev = -dev
		}
		out = append(out, YearStat{
			Year:           year,
			AvgMaxTemp:     mx,
			AvgMinTemp:     mn,
			ExtremeHotDays: counts[year].ExtremelyHot,
			TropicalNights: counts[year].TropicalNights,
			TempRange:      mx - mn,
			Deviation:      dev,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// RankOrder selects the record ranking in TopDays.
type RankOrder int

const (
	HottestByMax RankOrder = iota
	ColdestByMin
)

// TopDays returns up to n records (none for n <= 0) ranked by max_temp descending or by
// min_temp ascending. Ties keep corpus order.
func TopDays(records []models.DailyRecord, n int, order RankOrder) []models.DailyRecord {
	if n < 0 {
		n = 0
	}
	ranked := make([]models.DailyRecord, len(records))
	copy(ranked, records)
	sort.SliceStable(ranked, func(i, j int) bool {
		if order == ColdestByMin {
			return ranked[i].MinTemp < ranked[j].MinTemp
		}
		return ranked[i].MaxTemp > ranked[j].MaxTemp
	})
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// MovingAverage smooths values with a window of `before` points before and
// `after` points after each index, clipped at the edges.
func MovingAverage(values []float64, before, after int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		start := max(0, i-before)
		end := min(len(values), i+after+1)
		var sum float64
		for _, v := range values[start:end] {
			sum += v
		}
		out[i] = sum / float64(end-start)
	}
	return out
}
