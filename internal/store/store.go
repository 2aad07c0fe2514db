// Package store persists lead extraction jobs and their results in a
// local SQLite database.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"textkit/internal/extract"
)

// Job statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Job describes one extraction run.
type Job struct {
	ID          string     `json:"id"`
	Filename    string     `json:"filename"`
	RowCount    int        `json:"row_count"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Store is a SQLite-backed job store.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (or creates) the job database under dataDir.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "leads.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) initSchema() error {
	// WAL for concurrent readers while a job is being written
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := s.db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			filename TEXT NOT NULL,
			row_count INTEGER NOT NULL,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			completed_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS leads (
			job_id TEXT NOT NULL,
			row_index INTEGER NOT NULL,
			payload TEXT NOT NULL,
			PRIMARY KEY (job_id, row_index),
			FOREIGN KEY(job_id) REFERENCES jobs(id) ON DELETE CASCADE
		);`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute init query: %w", err)
		}
	}

	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveJob inserts or updates a job record.
func (s *Store) SaveJob(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO jobs (id, filename, row_count, status, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, job.ID, job.Filename, job.RowCount, job.Status, job.CreatedAt, job.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

// GetJob returns a job by ID, or nil when absent.
func (s *Store) GetJob(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var job Job
	var completedAt sql.NullTime
	err := s.db.QueryRow(`
		SELECT id, filename, row_count, status, created_at, completed_at
		FROM jobs WHERE id = ?
	`, id).Scan(&job.ID, &job.Filename, &job.RowCount, &job.Status, &job.CreatedAt, &completedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}

	return &job, nil
}

// ListJobs returns all jobs, newest first.
func (s *Store) ListJobs() ([]*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, filename, row_count, status, created_at, completed_at
		FROM jobs ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []*Job{}
	for rows.Next() {
		var job Job
		var completedAt sql.NullTime
		if err := rows.Scan(&job.ID, &job.Filename, &job.RowCount, &job.Status, &job.CreatedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		if completedAt.Valid {
			job.CompletedAt = &completedAt.Time
		}
		jobs = append(jobs, &job)
	}

	return jobs, rows.Err()
}

// SaveLeads stores the extracted leads of a job, keyed by row index.
func (s *Store) SaveLeads(jobID string, leads []extract.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO leads (job_id, row_index, payload) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, lead := range leads {
		payload, err := json.Marshal(lead)
		if err != nil {
			return fmt.Errorf("failed to marshal lead %d: %w", i, err)
		}
		if _, err := stmt.Exec(jobID, i, string(payload)); err != nil {
			return fmt.Errorf("failed to insert lead %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// GetLeads returns a job's leads ordered by row index.
func (s *Store) GetLeads(jobID string) ([]extract.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT payload FROM leads WHERE job_id = ? ORDER BY row_index
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load leads: %w", err)
	}
	defer rows.Close()

	leads := []extract.Lead{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		var lead extract.Lead
		if err := json.Unmarshal([]byte(payload), &lead); err != nil {
			return nil, fmt.Errorf("failed to parse lead payload: %w", err)
		}
		leads = append(leads, lead)
	}

	return leads, rows.Err()
}

// DeleteJob removes a job and, through the foreign key, its leads.
func (s *Store) DeleteJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("job '%s' not found", id)
	}
	return nil
}
