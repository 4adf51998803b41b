package climate

import (
	"sort"

	"github.com/lox/tokyotemps/internal/models"
)

// AggregateMonthly averages each calendar month across all years. Months with
// no records, and months outside 1-12, are not emitted.
func AggregateMonthly(records []models.DailyRecord) []MonthlyPoint {
	var byMonth [13]tempSum
	for _, r := range records {
		if r.Month < 1 || r.Month > 12 {
			continue
		}
		byMonth[r.Month].add(r)
	}

	points := make([]MonthlyPoint, 0, 12)
	for month := 1; month <= 12; month++ {
		s := byMonth[month]
		if s.n == 0 {
			continue
		}
		mx, mn, diff := s.rounded()
		points = append(points, MonthlyPoint{
			Month:      month,
			MonthName:  MonthName(month),
			AvgMaxTemp: mx,
			AvgMinTemp: mn,
			TempDiff:   diff,
		})
	}
	return points
}

// MonthlyForYear is AggregateMonthly restricted to a single year.
func MonthlyForYear(records []models.DailyRecord, year int) []MonthlyPoint {
	var yearRecords []models.DailyRecord
	for _, r := range records {
		if r.Year == year {
			yearRecords = append(yearRecords, r)
		}
	}
	return AggregateMonthly(yearRecords)
}

// AggregateMonthlyYearly tracks one calendar month across years: one point per
// year with at least one record in targetMonth, sorted by year.
func AggregateMonthlyYearly(records []models.DailyRecord, targetMonth int) []MonthlyYearlyPoint {
	byYear := make(map[int]*tempSum)
	for _, r := range records {
		if r.Month != targetMonth {
			continue
		}
		s, ok := byYear[r.Year]
		if !ok {
			s = &tempSum{}
			byYear[r.Year] = s
		}
		s.add(r)
	}

	points := make([]MonthlyYearlyPoint, 0, len(byYear))
	for year, s := range byYear {
		mx, mn, diff := s.rounded()
		points = append(points, MonthlyYearlyPoint{
			Year:       year,
			Month:      targetMonth,
			MonthName:  MonthName(targetMonth),
			AvgMaxTemp: mx,
			AvgMinTemp: mn,
			TempDiff:   diff,
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Year < points[j].Year })
	return points
}
