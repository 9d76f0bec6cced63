// Package database persists the deletion history written by the eraser.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Actions recorded per processed path
const (
	ActionDelete   = "DELETE"
	ActionNotFound = "NOT_FOUND"
	ActionError    = "ERROR"
	ActionBlocked  = "BLOCKED"
)

// DeletionDB manages the SQLite database for deletion history
type DeletionDB struct {
	db *sql.DB
}

// DeletionRecord is one path processed by a delete batch
type DeletionRecord struct {
	ID           int64     `json:"id"`
	BatchID      string    `json:"batch_id"`
	Timestamp    time.Time `json:"timestamp"`
	Action       string    `json:"action"`
	Path         string    `json:"path"`
	FileName     string    `json:"file_name"`
	ObjectType   string    `json:"object_type"` // file or directory
	Size         int64     `json:"size"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// NewDeletionDB creates a new database connection and initializes schema
func NewDeletionDB(dbPath string) (*DeletionDB, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	// _loc=auto makes the driver parse DATETIME columns into time.Time
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_loc=auto")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	// A real statement forces the file to be created now
	if _, err = db.Exec("SELECT 1"); err != nil {
		return nil, fmt.Errorf("failed to initialize database (check permissions on %s): %w", dbPath, err)
	}

	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err = db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	ddb := &DeletionDB{db: db}
	if err = ddb.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return ddb, nil
}

// initSchema creates tables and indexes if they don't exist
func (d *DeletionDB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS deletions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		batch_id TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		action TEXT NOT NULL,
		path TEXT NOT NULL,
		file_name TEXT,
		object_type TEXT NOT NULL,
		size INTEGER NOT NULL,
		error_message TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_batch_id ON deletions(batch_id);
	CREATE INDEX IF NOT EXISTS idx_timestamp ON deletions(timestamp);
	CREATE INDEX IF NOT EXISTS idx_action ON deletions(action);
	CREATE INDEX IF NOT EXISTS idx_path ON deletions(path);
	CREATE INDEX IF NOT EXISTS idx_size ON deletions(size);

	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := d.db.Exec(schema)
	return err
}

// RecordDeletion inserts one history row. A zero Timestamp means now and
// an empty FileName is derived from Path.
func (d *DeletionDB) RecordDeletion(r DeletionRecord) error {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	if r.FileName == "" {
		r.FileName = filepath.Base(r.Path)
	}

	var errMsg sql.NullString
	if r.ErrorMessage != "" {
		errMsg = sql.NullString{String: r.ErrorMessage, Valid: true}
	}

	_, err := d.db.Exec(`
	INSERT INTO deletions (
		batch_id, timestamp, action, path, file_name, object_type, size, error_message
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.BatchID,
		r.Timestamp.UTC(),
		r.Action,
		r.Path,
		r.FileName,
		r.ObjectType,
		r.Size,
		errMsg,
	)
	if err != nil {
		return fmt.Errorf("failed to record %s for %s: %w", r.Action, r.Path, err)
	}
	return nil
}

// Ping verifies the connection is usable; used by the health checker.
func (d *DeletionDB) Ping() error {
	return d.db.Ping()
}

// Close closes the database connection
func (d *DeletionDB) Close() error {
	return d.db.Close()
}

// Vacuum optimizes the database (run periodically)
func (d *DeletionDB) Vacuum() error {
	_, err := d.db.Exec("VACUUM")
	return err
}

// Count returns the number of history rows
func (d *DeletionDB) Count() (int64, error) {
	var n int64
	err := d.db.QueryRow("SELECT COUNT(*) FROM deletions").Scan(&n)
	return n, err
}

// GetDatabaseStats returns database statistics
func (d *DeletionDB) GetDatabaseStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	totalRecords, err := d.Count()
	if err != nil {
		return nil, err
	}
	stats["total_records"] = totalRecords

	var pageCount, pageSize int64
	if err := d.db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return nil, err
	}
	if err := d.db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return nil, err
	}
	stats["database_size_bytes"] = pageCount * pageSize

	// Aggregates lose the column type, so the driver hands back strings
	var oldest, newest sql.NullString
	err = d.db.QueryRow("SELECT MIN(timestamp), MAX(timestamp) FROM deletions").Scan(&oldest, &newest)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if t, ok := parseTimestamp(oldest); ok {
		stats["oldest_record"] = t
	}
	if t, ok := parseTimestamp(newest); ok {
		stats["newest_record"] = t
	}

	return stats, nil
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

func parseTimestamp(s sql.NullString) (time.Time, bool) {
	if !s.Valid || s.String == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s.String); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
