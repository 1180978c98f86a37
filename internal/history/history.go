// Package history persists processed-email records in a local SQLite
// database so runs of the CLI, watcher and web server share one triage log.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Record is one processed email.
type Record struct {
	ID           int64
	RequestID    string
	Source       string // "text", "file", "imap", "web"
	Category     string
	Confidence   float64
	Method       string // "remote" or "local"
	Reply        string
	Excerpt      string
	ProcessingMs int64
	CreatedAt    time.Time
}

// Stats aggregates the triage log.
type Stats struct {
	Total           int
	Productive      int
	Unproductive    int
	Errors          int
	AvgProcessingMs float64
}

type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS triage_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id TEXT NOT NULL,
		source TEXT NOT NULL,
		category TEXT NOT NULL,
		confidence REAL NOT NULL,
		method TEXT,
		reply TEXT,
		excerpt TEXT,
		processing_ms INTEGER,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_tl_category ON triage_log(category);
	CREATE INDEX IF NOT EXISTS idx_tl_created_at ON triage_log(created_at);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (s *Store) Add(record *Record) error {
	query := `
	INSERT INTO triage_log (request_id, source, category, confidence, method, reply, excerpt, processing_ms, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(query,
		record.RequestID,
		record.Source,
		record.Category,
		record.Confidence,
		record.Method,
		record.Reply,
		record.Excerpt,
		record.ProcessingMs,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	record.ID = id
	return nil
}

func (s *Store) Recent(limit int) ([]Record, error) {
	query := `
	SELECT id, request_id, source, category, confidence, method, reply, excerpt, processing_ms, created_at
	FROM triage_log ORDER BY created_at DESC LIMIT ?`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

func (s *Store) Stats() (Stats, error) {
	var stats Stats

	query := `
	SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN category = 'Produtivo' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN category = 'Improdutivo' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN category = 'ERROR' THEN 1 ELSE 0 END), 0),
		COALESCE(AVG(processing_ms), 0)
	FROM triage_log`

	err := s.db.QueryRow(query).Scan(
		&stats.Total,
		&stats.Productive,
		&stats.Unproductive,
		&stats.Errors,
		&stats.AvgProcessingMs,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to query stats: %w", err)
	}
	return stats, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// scanRecord handles nullable columns when scanning a row
func scanRecord(scanner interface{ Scan(...any) error }) (*Record, error) {
	var r Record
	var method, reply, excerpt sql.NullString
	var processingMs sql.NullInt64
	var createdAt sql.NullTime

	err := scanner.Scan(&r.ID, &r.RequestID, &r.Source, &r.Category, &r.Confidence,
		&method, &reply, &excerpt, &processingMs, &createdAt)
	if err != nil {
		return nil, err
	}

	r.Method = method.String
	r.Reply = reply.String
	r.Excerpt = excerpt.String
	r.ProcessingMs = processingMs.Int64
	r.CreatedAt = createdAt.Time
	return &r, nil
}
