package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lox/tokyotemps/internal/metrics"
	"github.com/lox/tokyotemps/internal/models"
	"github.com/lox/tokyotemps/internal/store"
)

// ForecastStore persists fetched forecasts keyed by the date of the fetch.
type ForecastStore interface {
	ReplaceForecasts(ctx context.Context, savedDate string, forecasts []models.ForecastRecord) (int, error)
}

// RunRecorder audits fetches. The SQLite store implements it.
type RunRecorder interface {
	StartIngestRun(ctx context.Context, runID, source, endpoint, locationID string) (*store.IngestRun, error)
	CompleteIngestRun(ctx context.Context, run *store.IngestRun) error
	StoreRawPayload(ctx context.Context, runID int64, source, endpoint, locationID string, payload []byte) (int64, error)
}

// SaveResult is the outcome of one fetch-and-save cycle. Failures never
// surface as errors to the caller.
type SaveResult struct {
	Success   bool   `json:"success"`
	SavedDate string `json:"savedDate,omitempty"`
	Count     int    `json:"count,omitempty"`
	Error     string `json:"error,omitempty"`

	err error
}

// Err returns the classified failure, wrapping ErrNetwork, ErrInvalidPayload
// or ErrPersistence.
func (r SaveResult) Err() error {
	return r.err
}

type Saver struct {
	client *Client
	store  ForecastStore
	runs   RunRecorder
	cache  *ForecastCache
	loc    *time.Location
	now    func() time.Time

	mu sync.Mutex
}

func NewSaver(client *Client, st ForecastStore, loc *time.Location) *Saver {
	if loc == nil {
		loc = time.UTC
	}
	return &Saver{
		client: client,
		store:  st,
		loc:    loc,
		now:    time.Now,
	}
}

// SetRunRecorder enables the ingest audit and raw payload archive.
func (s *Saver) SetRunRecorder(r RunRecorder) {
	s.runs = r
}

// SetCache makes successful saves refresh the live forecast cache.
func (s *Saver) SetCache(c *ForecastCache) {
	s.cache = c
}

// SetClock overrides the time source used for saved dates.
func (s *Saver) SetClock(now func() time.Time) {
	s.now = now
}

// SavedDate is today's date in the saver's time zone.
func (s *Saver) SavedDate() string {
	return s.now().In(s.loc).Format("2006-01-02")
}

// FetchAndSave fetches the forecast and replaces every row stored under
// today's saved date. Concurrent calls are serialised.
func (s *Saver) FetchAndSave(ctx context.Context) SaveResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	savedDate := now.In(s.loc).Format("2006-01-02")
	log.Printf("ingest: fetching forecast for city %s (saved date %s)", s.client.City(), savedDate)

	run := s.startRun(ctx)

	data, fetch, err := s.client.Fetch(ctx)
	if fetch != nil && run != nil {
		if fetch.HTTPStatus != 0 {
			run.HTTPStatus = sql.NullInt64{Int64: int64(fetch.HTTPStatus), Valid: true}
		}
		run.ResponseSizeBytes = sql.NullInt64{Int64: int64(fetch.ResponseSize), Valid: true}
		if len(fetch.Body) > 0 {
			if _, perr := s.runs.StoreRawPayload(ctx, run.ID, Source, s.client.Endpoint(), s.client.City(), fetch.Body); perr != nil {
				log.Printf("ingest: failed to store raw payload: %v", perr)
			}
		}
	}
	if err != nil {
		return s.fail(ctx, run, savedDate, err)
	}

	records, parseErrors := data.Records(now.UTC(), savedDate)
	if run != nil {
		run.RecordsParsed = sql.NullInt64{Int64: int64(len(records)), Valid: true}
		run.ParseErrors = sql.NullInt64{Int64: int64(parseErrors), Valid: true}
	}
	if parseErrors > 0 {
		log.Printf("ingest: %d temperature values could not be parsed", parseErrors)
	}

	n, err := s.store.ReplaceForecasts(ctx, savedDate, records)
	if err != nil {
		return s.fail(ctx, run, savedDate, fmt.Errorf("%w: %v", ErrPersistence, err))
	}
	metrics.ForecastsStored.Add(float64(n))
	metrics.FetchAndSaveTotal.WithLabelValues("success").Inc()

	if s.cache != nil {
		s.cache.Set(records)
	}

	if run != nil {
		run.RecordsStored = sql.NullInt64{Int64: int64(n), Valid: true}
		run.Success = true
		if err := s.runs.CompleteIngestRun(ctx, run); err != nil {
			log.Printf("ingest: failed to complete ingest run: %v", err)
		}
	}

	log.Printf("ingest: saved %d forecasts for %s", n, savedDate)
	return SaveResult{Success: true, SavedDate: savedDate, Count: n}
}

func (s *Saver) startRun(ctx context.Context) *store.IngestRun {
	if s.runs == nil {
		return nil
	}
	run, err := s.runs.StartIngestRun(ctx, uuid.NewString(), Source, s.client.Endpoint(), s.client.City())
	if err != nil {
		log.Printf("ingest: failed to start ingest run: %v", err)
		return nil
	}
	return run
}

func (s *Saver) fail(ctx context.Context, run *store.IngestRun, savedDate string, err error) SaveResult {
	outcome := "network_error"
	switch {
	case errors.Is(err, ErrPersistence):
		outcome = "persistence_error"
	case errors.Is(err, ErrInvalidPayload):
		outcome = "invalid_payload"
	}
	metrics.FetchAndSaveTotal.WithLabelValues(outcome).Inc()
	log.Printf("ingest: fetch-and-save for %s failed: %v", savedDate, err)

	if run != nil {
		run.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
		if cerr := s.runs.CompleteIngestRun(ctx, run); cerr != nil {
			log.Printf("ingest: failed to complete ingest run: %v", cerr)
		}
	}
	return SaveResult{Success: false, Error: err.Error(), err: err}
}

// Live returns the current forecast, from the cache when it is fresh.
// cached reports whether the cache served the request.
func (s *Saver) Live(ctx context.Context) (forecasts []models.ForecastRecord, fetchedAt time.Time, cached bool, err error) {
	if s.cache != nil {
		if f, at, ok := s.cache.Get(); ok {
			metrics.LiveCacheTotal.WithLabelValues("hit").Inc()
			return f, at, true, nil
		}
		metrics.LiveCacheTotal.WithLabelValues("miss").Inc()
	}

	data, _, err := s.client.Fetch(ctx)
	if err != nil {
		return nil, time.Time{}, false, err
	}
	now := s.now()
	records, _ := data.Records(now.UTC(), now.In(s.loc).Format("2006-01-02"))
	if s.cache != nil {
		s.cache.Set(records)
	}
	return records, now, false, nil
}
