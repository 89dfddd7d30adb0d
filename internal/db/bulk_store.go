package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrJobNotFound indicates the requested bulk job does not exist.
var ErrJobNotFound = errors.New("bulk job not found")

// Bulk row status values
const (
	BulkStatusOK    = "ok"
	BulkStatusError = "error"
)

// BulkJob is one manifest run.
type BulkJob struct {
	ID           string     `json:"id"`
	ManifestPath string     `json:"manifest_path"`
	TotalRows    int        `json:"total_rows"`
	OKCount      int        `json:"ok_count"`
	ErrorCount   int        `json:"error_count"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// BulkJobRoute records the outcome of one manifest row.
type BulkJobRoute struct {
	JobID    string `json:"job_id"`
	RowIndex int    `json:"row_index"`
	ShotCode string `json:"shot_code,omitempty"`
	RouteID  string `json:"route_id,omitempty"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

// CreateBulkJob records the start of a manifest run and returns its id.
func (db *DB) CreateBulkJob(manifestPath string, totalRows int) (string, error) {
	id := uuid.New().String()
	_, err := db.Exec(`
		INSERT INTO bulk_jobs (job_id, manifest_path, total_rows, started_at)
		VALUES (?, ?, ?, ?)`,
		id, manifestPath, totalRows, time.Now().UTC().Truncate(time.Second).Format(timeFormat),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create bulk job: %w", err)
	}
	return id, nil
}

// RecordBulkJobRoute stores the outcome of one manifest row.
func (db *DB) RecordBulkJobRoute(r BulkJobRoute) error {
	var routeID interface{}
	if r.RouteID != "" {
		routeID = r.RouteID
	}
	_, err := db.Exec(`
		INSERT INTO bulk_job_routes (job_id, row_index, shot_code, route_id, status, error)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.JobID, r.RowIndex, r.ShotCode, routeID, r.Status, r.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record bulk row: %w", err)
	}
	return nil
}

// FinishBulkJob stores the final counts and completion time.
func (db *DB) FinishBulkJob(id string, okCount, errorCount int) error {
	res, err := db.Exec(`
		UPDATE bulk_jobs SET ok_count = ?, error_count = ?, finished_at = ?
		WHERE job_id = ?`,
		okCount, errorCount, time.Now().UTC().Truncate(time.Second).Format(timeFormat), id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish bulk job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return nil
}

// GetBulkJob loads one bulk job.
func (db *DB) GetBulkJob(id string) (*BulkJob, error) {
	var (
		j          BulkJob
		startedAt  string
		finishedAt sql.NullString
	)
	err := db.QueryRow(`
		SELECT job_id, manifest_path, total_rows, ok_count, error_count, started_at, finished_at
		FROM bulk_jobs WHERE job_id = ?`, id).Scan(
		&j.ID, &j.ManifestPath, &j.TotalRows, &j.OKCount, &j.ErrorCount, &startedAt, &finishedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load bulk job: %w", err)
	}
	j.StartedAt, _ = time.Parse(timeFormat, startedAt)
	if finishedAt.Valid {
		t, err := time.Parse(timeFormat, finishedAt.String)
		if err == nil {
			j.FinishedAt = &t
		}
	}
	return &j, nil
}

// ListBulkJobRoutes returns the recorded rows of a job in manifest order.
func (db *DB) ListBulkJobRoutes(jobID string) ([]BulkJobRoute, error) {
	rows, err := db.Query(`
		SELECT job_id, row_index, shot_code, route_id, status, error
		FROM bulk_job_routes WHERE job_id = ? ORDER BY row_index`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bulk rows: %w", err)
	}
	defer rows.Close()

	var results []BulkJobRoute
	for rows.Next() {
		var (
			r       BulkJobRoute
			routeID sql.NullString
		)
		if err := rows.Scan(&r.JobID, &r.RowIndex, &r.ShotCode, &routeID, &r.Status, &r.Error); err != nil {
			return nil, err
		}
		r.RouteID = routeID.String
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
