package climate

import (
	"sort"

	"github.com/lox/tokyotemps/internal/models"
)

// AggregateAnnual averages max/min temperature per calendar year and fills
// years without records by linear interpolation between the nearest earlier
// and later years that have data. The result is sorted by year.
func AggregateAnnual(records []models.DailyRecord) []AnnualPoint {
	byYear := make(map[int]*tempSum)
	for _, r := range records {
		s, ok := byYear[r.Year]
		if !ok {
			s = &tempSum{}
			byYear[r.Year] = s
		}
		s.add(r)
	}

	computed := make([]AnnualPoint, 0, len(byYear))
	for year, s := range byYear {
		mx, mn, diff := s.rounded()
		computed = append(computed, AnnualPoint{Year: year, AvgMaxTemp: mx, AvgMinTemp: mn, TempDiff: diff})
	}
	sort.Slice(computed, func(i, j int) bool { return computed[i].Year < computed[j].Year })

	return fillMissingYears(computed)
}

// fillMissingYears expects points sorted by year. Gap years are interpolated
// only when both a preceding and a following anchor exist.
func fillMissingYears(computed []AnnualPoint) []AnnualPoint {
	if len(computed) == 0 {
		return []AnnualPoint{}
	}

	first, last := computed[0].Year, computed[len(computed)-1].Year
	filled := make([]AnnualPoint, 0, last-first+1)

	next := 0 // index of the first computed point with Year >= year
	for year := first; year <= last; year++ {
		for next < len(computed) && computed[next].Year < year {
			next++
		}
		if next < len(computed) && computed[next].Year == year {
			filled = append(filled, computed[next])
			continue
		}
		if next == 0 || next >= len(computed) {
			continue
		}
		prev, after := computed[next-1], computed[next]
		ratio := float64(year-prev.Year) / float64(after.Year-prev.Year)
		mx := Round1(prev.AvgMaxTemp + (after.AvgMaxTemp-prev.AvgMaxTemp)*ratio)
		mn := Round1(prev.AvgMinTemp + (after.AvgMinTemp-prev.AvgMinTemp)*ratio)
		filled = append(filled, AnnualPoint{
			Year:       year,
			AvgMaxTemp: mx,
			AvgMinTemp: mn,
			TempDiff:   Round1(mx - mn),
		})
	}
	return filled
}
