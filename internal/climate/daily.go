package climate

import (
	"fmt"

	"github.com/lox/tokyotemps/internal/models"
)

// daysInMonth is a fixed non-leap calendar. Feb 29 is excluded from the
// day-of-year profile permanently; the table is not derived from a calendar
// library so the 365-day iteration never changes.
var daysInMonth = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// IsLeapDay reports whether a record falls on Feb 29.
func IsLeapDay(r models.DailyRecord) bool {
	return r.Month == 2 && r.Day == 29
}

// AggregateDailyOfYear averages each calendar day across all years. DayOfYear
// counts every calendar day from Jan 1 = 1, so days without any records are
// skipped but still consume a number.
func AggregateDailyOfYear(records []models.DailyRecord) []DailyPoint {
	type monthDay struct{ month, day int }
	byDay := make(map[monthDay]*tempSum)
	for _, r := range records {
		if IsLeapDay(r) {
			continue
		}
		key := monthDay{r.Month, r.Day}
		s, ok := byDay[key]
		if !ok {
			s = &tempSum{}
			byDay[key] = s
		}
		s.add(r)
	}

	points := make([]DailyPoint, 0, len(byDay))
	dayOfYear := 1
	for m, days := range daysInMonth {
		month := m + 1
		for day := 1; day <= days; day++ {
			if s, ok := byDay[monthDay{month, day}]; ok && s.n > 0 {
				mx, mn, diff := s.rounded()
				points = append(points, DailyPoint{
					DayOfYear:  dayOfYear,
					Month:      month,
					Day:        day,
					DateLabel:  fmt.Sprintf("%d/%d", month, day),
					AvgMaxTemp: mx,
					AvgMinTemp: mn,
					TempDiff:   diff,
				})
			}
			dayOfYear++
		}
	}
	return points
}
