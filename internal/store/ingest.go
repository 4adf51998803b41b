package store

import (
	"context"
	"database/sql"
	"time"
)

// IngestRun is the audit record of one forecast fetch.
type IngestRun struct {
	ID                int64          `json:"id"`
	RunID             string         `json:"run_id"`
	StartedAt         time.Time      `json:"started_at"`
	FinishedAt        sql.NullTime   `json:"-"`
	Source            string         `json:"source"`
	Endpoint          string         `json:"endpoint"`
	LocationID        sql.NullString `json:"-"`
	HTTPStatus        sql.NullInt64  `json:"-"`
	ResponseSizeBytes sql.NullInt64  `json:"-"`
	RecordsParsed     sql.NullInt64  `json:"-"`
	RecordsStored     sql.NullInt64  `json:"-"`
	ParseErrors       sql.NullInt64  `json:"-"`
	Success           bool           `json:"success"`
	ErrorMessage      sql.NullString `json:"-"`
}

// StartIngestRun creates a new ingest run record and returns it.
func (s *Store) StartIngestRun(ctx context.Context, runID, source, endpoint, locationID string) (*IngestRun, error) {
	run := &IngestRun{
		RunID:     runID,
		StartedAt: time.Now().UTC(),
		Source:    source,
		Endpoint:  endpoint,
	}
	if locationID != "" {
		run.LocationID = sql.NullString{String: locationID, Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO ingest_runs (run_id, started_at, source, endpoint, location_id, success)
		VALUES (?, ?, ?, ?, ?, FALSE)
	`, run.RunID, run.StartedAt, run.Source, run.Endpoint, run.LocationID)
	if err != nil {
		return nil, err
	}

	run.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return run, nil
}

// CompleteIngestRun updates the ingest run with results.
func (s *Store) CompleteIngestRun(ctx context.Context, run *IngestRun) error {
	if run == nil {
		return nil
	}

	run.FinishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}

	_, err := s.db.ExecContext(ctx, `
		UPDATE ingest_runs SET
			finished_at = ?,
			http_status = ?,
			response_size_bytes = ?,
			records_parsed = ?,
			records_stored = ?,
			parse_errors = ?,
			success = ?,
			error_message = ?
		WHERE id = ?
	`, run.FinishedAt, run.HTTPStatus, run.ResponseSizeBytes, run.RecordsParsed,
		run.RecordsStored, run.ParseErrors, run.Success, run.ErrorMessage, run.ID)
	return err
}

// RecentIngestRuns returns the latest runs, newest first. With failedOnly set
// only unsuccessful runs are returned.
func (s *Store) RecentIngestRuns(ctx context.Context, limit int, failedOnly bool) ([]IngestRun, error) {
	query := `
		SELECT id, run_id, started_at, finished_at, source, endpoint, location_id,
			   http_status, response_size_bytes, records_parsed, records_stored,
			   parse_errors, success, error_message
		FROM ingest_runs`
	if failedOnly {
		query += ` WHERE success = FALSE`
	}
	query += ` ORDER BY started_at DESC, id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []IngestRun
	for rows.Next() {
		var r IngestRun
		if err := rows.Scan(&r.ID, &r.RunID, &r.StartedAt, &r.FinishedAt, &r.Source, &r.Endpoint,
			&r.LocationID, &r.HTTPStatus, &r.ResponseSizeBytes, &r.RecordsParsed,
			&r.RecordsStored, &r.ParseErrors, &r.Success, &r.ErrorMessage); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
