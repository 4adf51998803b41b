package climate

import (
	"errors"
	"testing"

	"github.com/lox/tokyotemps/internal/models"
)

func TestLinearTrend(t *testing.T) {
	series := []AnnualPoint{
		{Year: 2000, AvgMaxTemp: 20},
		{Year: 2010, AvgMaxTemp: 21},
	}

	trend, err := LinearTrend(series)
	if err != nil {
		t.Fatalf("LinearTrend: %v", err)
	}
	if !approx(trend.Slope, 0.1, 1e-9) {
		t.Errorf("Slope = %v, want 0.1", trend.Slope)
	}
	if !approx(trend.At(2000), 20, 1e-6) {
		t.Errorf("At(2000) = %v, want 20", trend.At(2000))
	}
	if !approx(trend.PerCentury(), 10, 1e-6) {
		t.Errorf("PerCentury = %v, want 10", trend.PerCentury())
	}
}

func TestLinearTrend_Degenerate(t *testing.T) {
	tests := []struct {
		name   string
		series []AnnualPoint
	}{
		{"empty", nil},
		{"single year", []AnnualPoint{{Year: 2000, AvgMaxTemp: 20}}},
		{"repeated year", []AnnualPoint{{Year: 2000, AvgMaxTemp: 20}, {Year: 2000, AvgMaxTemp: 22}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LinearTrend(tt.series)
			if !errors.Is(err, ErrDegenerateTrend) {
				t.Errorf("err = %v, want ErrDegenerateTrend", err)
			}
		})
	}
}

func TestComputeNormalStatistics_SingleYear(t *testing.T) {
	var records []models.DailyRecord
	for d := 1; d <= 31; d++ {
		records = append(records, rec(2010, 1, d, float64(d), 0))
	}
	records = append(records, rec(1980, 1, 1, 99, 0))

	normals := ComputeNormalStatistics(records, YearRange(2010, 2010))
	if len(normals) != 31 {
		t.Fatalf("len = %d, want 31", len(normals))
	}
	for key, n := range normals {
		if n.StandardDeviation != 0 {
			t.Errorf("%s: StandardDeviation = %v, want 0", key, n.StandardDeviation)
		}
	}
	if n := normals["01-01"]; n.Mean != 1 || n.Count != 1 {
		t.Errorf("01-01 = %+v, want mean 1 count 1", n)
	}
}

func TestComputeNormalStatistics_Population(t *testing.T) {
	records := []models.DailyRecord{
		rec(2000, 8, 1, 30, 0),
		rec(2001, 8, 1, 32, 0),
		rec(2002, 8, 1, 34, 0),
		rec(2003, 8, 1, 36, 0),
	}

	n := ComputeNormalStatistics(records, AllHistory)["08-01"]
	if n.Mean != 33 {
		t.Errorf("Mean = %v, want 33", n.Mean)
	}
	// population variance = (9+1+1+9)/4 = 5
	if !approx(n.StandardDeviation, 2.2360679, 1e-6) {
		t.Errorf("StandardDeviation = %v, want sqrt(5)", n.StandardDeviation)
	}

	windowed := ComputeNormalStatistics(records, YearRange(2002, 2003))["08-01"]
	if windowed.Mean != 35 || windowed.Count != 2 {
		t.Errorf("windowed = %+v, want mean 35 count 2", windowed)
	}
}

func TestParseBaseline(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "1995-2024", false},
		{"30years", "1995-2024", false},
		{"145years", "all", false},
		{"all", "all", false},
		{"1961-1990", "1961-1990", false},
		{"1990-1961", "", true},
		{"bogus", "", true},
	}

	for _, tt := range tests {
		got, err := ParseBaseline(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseBaseline(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got.String() != tt.want {
			t.Errorf("ParseBaseline(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestCompareToNormal(t *testing.T) {
	normal := NormalStat{Mean: 30, StandardDeviation: 1.5}
	tests := []struct {
		name     string
		observed float64
		wantDir  Direction
		extreme  bool
	}{
		{"equal within tolerance", 30.05, Equal, false},
		{"slightly above", 31, Above, false},
		{"two sigma above", 33, Above, true},
		{"slightly below", 29, Below, false},
		{"two sigma below", 26.9, Below, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := CompareToNormal(tt.observed, normal)
			if c.Direction != tt.wantDir {
				t.Errorf("Direction = %s, want %s", c.Direction, tt.wantDir)
			}
			if c.Extreme != tt.extreme {
				t.Errorf("Extreme = %v, want %v", c.Extreme, tt.extreme)
			}
		})
	}
}

func TestFlatThreshold(t *testing.T) {
	th := FlatThreshold(DefaultForecastThreshold)
	if !th.Exceeds(32, 30) {
		t.Error("32 vs 30 should exceed a 2°C threshold")
	}
	if th.Exceeds(31.9, 30) {
		t.Error("31.9 vs 30 should not exceed a 2°C threshold")
	}
	if th.Exceeds(25, 30) {
		t.Error("a colder forecast should not exceed")
	}
}

func TestCompareYear(t *testing.T) {
	var records []models.DailyRecord
	for year := 2000; year < 2010; year++ {
		records = append(records, rec(year, 8, 1, 30, 24), rec(year, 8, 2, 30+float64(year%2), 24))
	}
	records = append(records,
		rec(2020, 8, 1, 36, 26),
		rec(2020, 8, 2, 30.5, 25),
		rec(2020, 8, 3, 31, 25), // no normal for 08-03
	)

	normals := ComputeNormalStatistics(records, YearRange(2000, 2009))
	yc := CompareYear(records, 2020, 8, YearRange(2000, 2009), normals)

	if yc.Total != 2 {
		t.Fatalf("Total = %d, want 2", yc.Total)
	}
	// 08-01: normal 30 with sd 0, 36 is extreme above. 08-02: normal 30.5, equal.
	if yc.Above != 1 || yc.AboveHigh != 1 || yc.Equal != 1 {
		t.Errorf("counts = above %d aboveHigh %d equal %d", yc.Above, yc.AboveHigh, yc.Equal)
	}
	if yc.ExtremelyHot != 1 || yc.VeryHot != 2 {
		t.Errorf("ExtremelyHot = %d VeryHot = %d, want 1 and 2", yc.ExtremelyHot, yc.VeryHot)
	}
	if len(yc.HottestTop) != 3 || yc.HottestTop[0].MaxTemp != 36 {
		t.Errorf("HottestTop = %+v", yc.HottestTop)
	}
	if yc.Baseline != "2000-2009" {
		t.Errorf("Baseline = %q", yc.Baseline)
	}
}

func TestCompareForecasts(t *testing.T) {
	records := []models.DailyRecord{
		rec(2000, 8, 1, 30, 24),
		rec(2001, 8, 1, 32, 24),
		rec(2000, 8, 2, 31, 23),
	}
	hot, warm, tropical := 34.0, 31.5, 26.0
	days := []ForecastDay{
		{Date: "2025-08-01", MaxTemp: &hot, MinTemp: &tropical},
		{Date: "2025-08-02", MaxTemp: &warm},
		{Date: "2025-12-25", MaxTemp: &warm},
	}

	got := CompareForecasts(records, days, FlatThreshold(2))
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}

	if !got[0].AbnormalMax || got[0].DeltaMax == nil || *got[0].DeltaMax != 3 {
		t.Errorf("got[0] max = %+v", got[0])
	}
	if !got[0].AbnormalMin || !got[0].TropicalNight {
		t.Errorf("got[0] min abnormal=%v tropical=%v, want both true", got[0].AbnormalMin, got[0].TropicalNight)
	}
	if got[0].Category != CategoryVeryHot {
		t.Errorf("got[0].Category = %q", got[0].Category)
	}
	if got[1].AbnormalMax {
		t.Error("got[1] should not be abnormal")
	}
	if got[1].DeltaMin != nil {
		t.Error("got[1] has no forecast min, DeltaMin should be nil")
	}
	if got[2].HistoricalMax != nil || got[2].AbnormalMax {
		t.Errorf("got[2] = %+v, want no history", got[2])
	}
}

func TestHotDayCounts(t *testing.T) {
	records := []models.DailyRecord{
		rec(2020, 8, 1, 36, 26),
		rec(2020, 8, 2, 33, 25),
		rec(2020, 8, 3, 27, 22),
		rec(2020, 8, 4, 24, 20),
		rec(2019, 8, 1, 35, 24.9),
	}

	got := HotDayCounts(records)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	y := got[1]
	if y.Year != 2020 || y.ExtremelyHot != 1 || y.VeryHot != 1 || y.Summer != 1 || y.TropicalNights != 2 || y.Days != 4 {
		t.Errorf("2020 = %+v", y)
	}
	if got[0].ExtremelyHot != 1 || got[0].TropicalNights != 0 {
		t.Errorf("2019 = %+v", got[0])
	}
}

func TestYearlyStats(t *testing.T) {
	records := []models.DailyRecord{
		rec(2000, 1, 1, 10, 0),
		rec(2001, 1, 1, 20, 10),
	}
	got := YearlyStats(records)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Deviation != 5 || got[1].Deviation != 5 {
		t.Errorf("deviations = %v,%v, want 5,5", got[0].Deviation, got[1].Deviation)
	}
	if got[1].TempRange != 10 {
		t.Errorf("TempRange = %v, want 10", got[1].TempRange)
	}
	if len(YearlyStats(nil)) != 0 {
		t.Error("YearlyStats(nil) should be empty")
	}
}

func TestTopDays(t *testing.T) {
	records := []models.DailyRecord{
		rec(2000, 1, 1, 10, -5),
		rec(2000, 8, 1, 39, 28),
		rec(2001, 8, 1, 37, 27),
		rec(2001, 1, 1, 8, -7),
	}

	hottest := TopDays(records, 2, HottestByMax)
	if len(hottest) != 2 || hottest[0].MaxTemp != 39 || hottest[1].MaxTemp != 37 {
		t.Errorf("hottest = %+v", hottest)
	}
	coldest := TopDays(records, 10, ColdestByMin)
	if len(coldest) != 4 || coldest[0].MinTemp != -7 {
		t.Errorf("coldest = %+v", coldest)
	}
	if records[0].MaxTemp != 10 {
		t.Error("TopDays mutated its input")
	}
	if got := TopDays(records, -1, HottestByMax); len(got) != 0 {
		t.Errorf("TopDays(n=-1) = %+v, want empty", got)
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{1, 2, 3, 4, 5}, 1, 1)
	want := []float64{1.5, 2, 3, 4, 4.5}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
