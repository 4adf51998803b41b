package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/tokyotemps/internal/climate"
	"github.com/lox/tokyotemps/internal/ingest"
	"github.com/lox/tokyotemps/internal/models"
	"github.com/lox/tokyotemps/internal/store"
)

// ForecastReader serves saved forecasts.
type ForecastReader interface {
	GetSavedForecasts(ctx context.Context, date string) ([]models.ForecastRecord, error)
	GetSavedDates(ctx context.Context) ([]string, error)
}

// Fetcher runs fetch-and-save cycles and serves the live forecast.
type Fetcher interface {
	FetchAndSave(ctx context.Context) ingest.SaveResult
	Live(ctx context.Context) ([]models.ForecastRecord, time.Time, bool, error)
}

// RunLister exposes the ingest audit.
type RunLister interface {
	RecentIngestRuns(ctx context.Context, limit int, failedOnly bool) ([]store.IngestRun, error)
}

type Server struct {
	forecasts ForecastReader
	fetcher   Fetcher
	runs      RunLister
	records   []models.DailyRecord
	port      string
	loc       *time.Location
	threshold climate.FlatThreshold

	annualOnce sync.Once
	annual     []climate.AnnualPoint

	normalsMu sync.Mutex
	normals   map[string]climate.Normals
}

// NewServer builds a server over an immutable historical corpus.
func NewServer(forecasts ForecastReader, fetcher Fetcher, records []models.DailyRecord, port string, loc *time.Location) *Server {
	if loc == nil {
		loc = time.UTC
	}
	return &Server{
		forecasts: forecasts,
		fetcher:   fetcher,
		records:   records,
		port:      port,
		loc:       loc,
		threshold: climate.DefaultForecastThreshold,
		normals:   make(map[string]climate.Normals),
	}
}

// SetAnomalyThreshold sets the flat °C rule used by the forecast comparison.
func (s *Server) SetAnomalyThreshold(t float64) {
	s.threshold = climate.FlatThreshold(t)
}

// SetRunLister enables GET /api/weather/runs.
func (s *Server) SetRunLister(r RunLister) {
	s.runs = r
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/weather/fetch", s.handleFetch)
	mux.HandleFunc("GET /api/weather/saved", s.handleSaved)
	mux.HandleFunc("GET /api/weather/live", s.handleLive)
	mux.HandleFunc("GET /api/weather/compare", s.handleCompare)
	mux.HandleFunc("GET /api/weather/runs", s.handleRuns)

	mux.HandleFunc("GET /api/climate/annual", s.handleAnnual)
	mux.HandleFunc("GET /api/climate/monthly", s.handleMonthly)
	mux.HandleFunc("GET /api/climate/monthly-yearly", s.handleMonthlyYearly)
	mux.HandleFunc("GET /api/climate/daily", s.handleDaily)
	mux.HandleFunc("GET /api/climate/trend", s.handleTrend)
	mux.HandleFunc("GET /api/climate/normals", s.handleNormals)
	mux.HandleFunc("GET /api/climate/year", s.handleYear)
	mux.HandleFunc("GET /api/climate/yearly-stats", s.handleYearlyStats)
	mux.HandleFunc("GET /api/climate/hot-days", s.handleHotDays)
	mux.HandleFunc("GET /api/climate/top-days", s.handleTopDays)
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("api: listening on :%s", s.port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// annualSeries is computed once; the corpus never changes.
func (s *Server) annualSeries() []climate.AnnualPoint {
	s.annualOnce.Do(func() {
		s.annual = climate.AggregateAnnual(s.records)
	})
	return s.annual
}

func (s *Server) normalsFor(b climate.Baseline) climate.Normals {
	s.normalsMu.Lock()
	defer s.normalsMu.Unlock()
	key := b.String()
	if n, ok := s.normals[key]; ok {
		return n
	}
	n := climate.ComputeNormalStatistics(s.records, b)
	s.normals[key] = n
	return n
}

type HealthStatus struct {
	Status       string   `json:"status"`
	Records      int      `json:"records"`
	LatestSaved  string   `json:"latest_saved_date,omitempty"`
	SavedAgeDays int      `json:"saved_age_days"`
	Stale        bool     `json:"stale"`
	Errors       []string `json:"errors,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthStatus{Status: "ok", Records: len(s.records), SavedAgeDays: -1}

	dates, err := s.forecasts.GetSavedDates(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "error": err.Error()})
		return
	}

	if len(dates) > 0 {
		health.LatestSaved = dates[0]
		if saved, err := time.ParseInLocation("2006-01-02", dates[0], s.loc); err == nil {
			now := time.Now().In(s.loc)
			today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
			health.SavedAgeDays = int(today.Sub(saved).Hours() / 24)
		}
	}
	// The scheduler saves once a day, so anything older than yesterday is stale.
	health.Stale = health.SavedAgeDays < 0 || health.SavedAgeDays > 1
	if health.Stale {
		health.Status = "degraded"
	}
	if len(s.records) == 0 {
		health.Status = "degraded"
		health.Errors = append(health.Errors, "historical dataset is empty")
	}

	writeJSON(w, http.StatusOK, health)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
