package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/lox/tokyotemps/internal/climate"
)

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	result := s.fetcher.FetchAndSave(r.Context())
	if !result.Success {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   result.Error,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Weather forecast saved for " + result.SavedDate,
		"count":   result.Count,
	})
}

func (s *Server) handleSaved(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if q.Get("action") == "dates" {
		dates, err := s.forecasts.GetSavedDates(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"dates": dates})
		return
	}

	date := q.Get("date")
	if date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
	}

	records, err := s.forecasts.GetSavedForecasts(r.Context(), date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"forecasts": forecastViews(records)})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	records, fetchedAt, cached, err := s.fetcher.Live(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"forecasts":  forecastViews(records),
		"fetched_at": fetchedAt,
		"cached":     cached,
	})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	records, err := s.forecasts.GetSavedForecasts(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	savedDate := ""
	if len(records) > 0 {
		savedDate = records[0].SavedDate
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"saved_date": savedDate,
		"threshold":  float64(s.threshold),
		"days":       climate.CompareForecasts(s.records, forecastDays(records), s.threshold),
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusNotFound, "ingest audit not available for this store")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}
	failedOnly := r.URL.Query().Get("failed") == "true"

	runs, err := s.runs.RecentIngestRuns(r.Context(), limit, failedOnly)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]IngestRunView, 0, len(runs))
	for _, run := range runs {
		out = append(out, IngestRunView{
			RunID:         run.RunID,
			StartedAt:     run.StartedAt,
			FinishedAt:    timePtr(run.FinishedAt),
			Endpoint:      run.Endpoint,
			HTTPStatus:    intPtr(run.HTTPStatus),
			ResponseBytes: intPtr(run.ResponseSizeBytes),
			RecordsStored: intPtr(run.RecordsStored),
			ParseErrors:   intPtr(run.ParseErrors),
			Success:       run.Success,
			Error:         strPtr(run.ErrorMessage),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": out})
}
