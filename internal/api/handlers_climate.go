package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/lox/tokyotemps/internal/climate"
	"github.com/lox/tokyotemps/internal/models"
)

// Window used to smooth tropical night counts on the hot-days series.
const (
	smoothBefore = 4
	smoothAfter  = 5
)

func (s *Server) handleAnnual(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.annualSeries())
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("year") == "" {
		writeJSON(w, http.StatusOK, climate.AggregateMonthly(s.records))
		return
	}
	year, err := intParam(r, "year", 1, 9999)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, climate.MonthlyForYear(s.records, year))
}

func (s *Server) handleMonthlyYearly(w http.ResponseWriter, r *http.Request) {
	month, err := intParam(r, "month", 1, 12)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, climate.AggregateMonthlyYearly(s.records, month))
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, climate.AggregateDailyOfYear(s.records))
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	series := s.annualSeries()
	trend, err := climate.LinearTrend(series)
	if errors.Is(err, climate.ErrDegenerateTrend) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, TrendView{
		Slope:      trend.Slope,
		Intercept:  trend.Intercept,
		PerCentury: trend.PerCentury(),
		FirstYear:  series[0].Year,
		LastYear:   series[len(series)-1].Year,
	})
}

func (s *Server) handleNormals(w http.ResponseWriter, r *http.Request) {
	baseline, err := climate.ParseBaseline(r.URL.Query().Get("baseline"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"baseline": baseline.String(),
		"normals":  s.normalsFor(baseline),
	})
}

func (s *Server) handleYear(w http.ResponseWriter, r *http.Request) {
	year, err := intParam(r, "year", 1, 9999)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	month := 0
	if r.URL.Query().Get("month") != "" {
		if month, err = intParam(r, "month", 1, 12); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	baseline, err := climate.ParseBaseline(r.URL.Query().Get("baseline"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, climate.CompareYear(s.records, year, month, baseline, s.normalsFor(baseline)))
}

func (s *Server) handleYearlyStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, climate.YearlyStats(s.records))
}

type hotDaysView struct {
	climate.HotDays
	TropicalNightsSmoothed float64 `json:"tropical_nights_smoothed"`
}

func (s *Server) handleHotDays(w http.ResponseWriter, r *http.Request) {
	counts := climate.HotDayCounts(s.records)
	nights := make([]float64, len(counts))
	for i, c := range counts {
		nights[i] = float64(c.TropicalNights)
	}
	smoothed := climate.MovingAverage(nights, smoothBefore, smoothAfter)

	out := make([]hotDaysView, len(counts))
	for i, c := range counts {
		out[i] = hotDaysView{HotDays: c, TropicalNightsSmoothed: climate.Round1(smoothed[i])}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTopDays(w http.ResponseWriter, r *http.Request) {
	n := 10
	if r.URL.Query().Get("n") != "" {
		var err error
		if n, err = intParam(r, "n", 1, 100); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	order := climate.HottestByMax
	switch r.URL.Query().Get("order") {
	case "", "hottest":
	case "coldest":
		order = climate.ColdestByMin
	default:
		writeError(w, http.StatusBadRequest, "order must be hottest or coldest")
		return
	}

	records := s.records
	if r.URL.Query().Get("year") != "" {
		year, err := intParam(r, "year", 1, 9999)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		records = make([]models.DailyRecord, 0, 366)
		for _, rec := range s.records {
			if rec.Year == year {
				records = append(records, rec)
			}
		}
	}

	writeJSON(w, http.StatusOK, climate.TopDays(records, n, order))
}

func intParam(r *http.Request, name string, lo, hi int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > hi {
		return 0, fmt.Errorf("%s must be an integer between %d and %d", name, lo, hi)
	}
	return v, nil
}
