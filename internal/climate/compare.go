package climate

import (
	"sort"

	"github.com/lox/tokyotemps/internal/models"
)

// YearComparison summarises how one year (optionally one month of it) sits
// against a baseline using the standard deviation rule.
type YearComparison struct {
	Year     int    `json:"year"`
	Month    int    `json:"month,omitempty"`
	Baseline string `json:"baseline"`

	Total     int `json:"total"`
	Above     int `json:"above"`
	Below     int `json:"below"`
	Equal     int `json:"equal"`
	AboveHigh int `json:"above_high"`
	BelowLow  int `json:"below_low"`

	ExtremelyHot int `json:"extremely_hot"`
	VeryHot      int `json:"very_hot"`
	Summer       int `json:"summer"`

	Days       []DayComparison      `json:"days"`
	HottestTop []models.DailyRecord `json:"hottest_top"`
}

type DayComparison struct {
	Month int `json:"month"`
	Day   int `json:"day"`
	Comparison
}

// CompareYear classifies each day of year (restricted to month when month is
// non-zero) against normals. Days whose MM-DD has no normal are listed in
// neither the counts nor Days.
func CompareYear(records []models.DailyRecord, year, month int, baseline Baseline, normals Normals) YearComparison {
	var selected []models.DailyRecord
	for _, r := range records {
		if r.Year != year || (month != 0 && r.Month != month) {
			continue
		}
		selected = append(selected, r)
	}
	sort.SliceStable(selected, func(i, j int) bool {
		if selected[i].Month != selected[j].Month {
			return selected[i].Month < selected[j].Month
		}
		return selected[i].Day < selected[j].Day
	})

	yc := YearComparison{
		Year:       year,
		Month:      month,
		Baseline:   baseline.String(),
		Days:       []DayComparison{},
		HottestTop: TopDays(selected, 3, HottestByMax),
	}

	for _, r := range selected {
		switch Categorize(r.MaxTemp) {
		case CategoryExtremelyHot:
			yc.ExtremelyHot++
		case CategoryVeryHot:
			yc.VeryHot++
		case CategorySummer:
			yc.Summer++
		}

		normal, ok := normals[r.MonthDay()]
		if !ok {
			continue
		}
		c := CompareToNormal(r.MaxTemp, normal)
		yc.Total++
		switch c.Direction {
		case Equal:
			yc.Equal++
		case Above:
			yc.Above++
			if c.Extreme {
				yc.AboveHigh++
			}
		case Below:
			yc.Below++
			if c.Extreme {
				yc.BelowLow++
			}
		}
		yc.Days = append(yc.Days, DayComparison{Month: r.Month, Day: r.Day, Comparison: c})
	}
	return yc
}

// HistoricalAverage is the unrounded mean of every record sharing a calendar
// day with Date.
type HistoricalAverage struct {
	Date     string   `json:"date"`
	MonthDay string   `json:"month_day"`
	AvgMax   *float64 `json:"avg_max"`
	AvgMin   *float64 `json:"avg_min"`
	Count    int      `json:"count"`
}

// HistoricalAverages looks up same-calendar-day averages for dates formatted
// YYYY-MM-DD. Dates too short to carry a month/day get a zero count.
func HistoricalAverages(records []models.DailyRecord, dates []string) []HistoricalAverage {
	sums := make(map[string]*tempSum)
	for _, r := range records {
		key := r.MonthDay()
		s, ok := sums[key]
		if !ok {
			s = &tempSum{}
			sums[key] = s
		}
		s.add(r)
	}

	out := make([]HistoricalAverage, 0, len(dates))
	for _, date := range dates {
		h := HistoricalAverage{Date: date}
		if len(date) >= 10 {
			h.MonthDay = date[5:7] + "-" + date[8:10]
		}
		if s, ok := sums[h.MonthDay]; ok && s.n > 0 {
			mx, mn := s.mean()
			h.AvgMax, h.AvgMin, h.Count = &mx, &mn, s.n
		}
		out = append(out, h)
	}
	return out
}

// ForecastDay is the minimal view of a forecast needed for comparison.
type ForecastDay struct {
	Date    string
	Telop   string
	MaxTemp *float64
	MinTemp *float64
}

type ForecastAnomaly struct {
	Date          string   `json:"date"`
	Telop         string   `json:"telop,omitempty"`
	ForecastMax   *float64 `json:"forecast_max"`
	ForecastMin   *float64 `json:"forecast_min"`
	HistoricalMax *float64 `json:"historical_max"`
	HistoricalMin *float64 `json:"historical_min"`
	DeltaMax      *float64 `json:"delta_max"`
	DeltaMin      *float64 `json:"delta_min"`
	AbnormalMax   bool     `json:"abnormal_max"`
	AbnormalMin   bool     `json:"abnormal_min"`
	Category      Category `json:"category,omitempty"`
	TropicalNight bool     `json:"tropical_night"`
}

// CompareForecasts sets each forecast day against its same-calendar-day
// historical average using the flat threshold rule.
func CompareForecasts(records []models.DailyRecord, days []ForecastDay, threshold FlatThreshold) []ForecastAnomaly {
	dates := make([]string, len(days))
	for i, d := range days {
		dates[i] = d.Date
	}
	hist := HistoricalAverages(records, dates)

	out := make([]ForecastAnomaly, len(days))
	for i, d := range days {
		a := ForecastAnomaly{
			Date:          d.Date,
			Telop:         d.Telop,
			ForecastMax:   d.MaxTemp,
			ForecastMin:   d.MinTemp,
			HistoricalMax: hist[i].AvgMax,
			HistoricalMin: hist[i].AvgMin,
		}
		if d.MaxTemp != nil {
			a.Category = Categorize(*d.MaxTemp)
			if hist[i].AvgMax != nil {
				delta := *d.MaxTemp - *hist[i].AvgMax
				a.DeltaMax = &delta
				a.AbnormalMax = threshold.Exceeds(*d.MaxTemp, *hist[i].AvgMax)
			}
		}
		if d.MinTemp != nil {
			a.TropicalNight = *d.MinTemp >= models.TropicalNightThreshold
			if hist[i].AvgMin != nil {
				delta := *d.MinTemp - *hist[i].AvgMin
				a.DeltaMin = &delta
				a.AbnormalMin = threshold.Exceeds(*d.MinTemp, *hist[i].AvgMin)
			}
		}
		out[i] = a
	}
	return out
}
