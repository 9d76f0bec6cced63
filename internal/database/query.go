package database

import (
	"database/sql"
	"time"
)

const selectColumns = `
	SELECT id, batch_id, timestamp, action, path, file_name, object_type, size, error_message
	FROM deletions
`

// GetRecentDeletions returns the N most recent deletion events
func (d *DeletionDB) GetRecentDeletions(limit int) ([]DeletionRecord, error) {
	return d.queryDeletions(selectColumns+`ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
}

// GetDeletionsByBatch returns the rows of one delete batch in processing order
func (d *DeletionDB) GetDeletionsByBatch(batchID string) ([]DeletionRecord, error) {
	return d.queryDeletions(selectColumns+`WHERE batch_id = ? ORDER BY id ASC`, batchID)
}

// GetDeletionsByDateRange returns deletions within a time range
func (d *DeletionDB) GetDeletionsByDateRange(start, end time.Time) ([]DeletionRecord, error) {
	return d.queryDeletions(selectColumns+`WHERE timestamp BETWEEN ? AND ? ORDER BY timestamp DESC, id DESC`,
		start.UTC(), end.UTC())
}

// GetDeletionsByPath returns deletions matching a LIKE pattern
func (d *DeletionDB) GetDeletionsByPath(pathPattern string) ([]DeletionRecord, error) {
	return d.queryDeletions(selectColumns+`WHERE path LIKE ? ORDER BY timestamp DESC, id DESC`, pathPattern)
}

// GetDeletionsByAction returns deletions filtered by action type
func (d *DeletionDB) GetDeletionsByAction(action string) ([]DeletionRecord, error) {
	return d.queryDeletions(selectColumns+`WHERE action = ? ORDER BY timestamp DESC, id DESC`, action)
}

// GetLargestDeletions returns the N largest successful deletions by size
func (d *DeletionDB) GetLargestDeletions(limit int) ([]DeletionRecord, error) {
	return d.queryDeletions(selectColumns+`WHERE action = 'DELETE' ORDER BY size DESC LIMIT ?`, limit)
}

// GetTotalSpaceFreed returns total bytes freed in a time range
func (d *DeletionDB) GetTotalSpaceFreed(start, end time.Time) (int64, error) {
	var total int64
	err := d.db.QueryRow(`
	SELECT COALESCE(SUM(size), 0)
	FROM deletions
	WHERE action = 'DELETE' AND timestamp BETWEEN ? AND ?
	`, start.UTC(), end.UTC()).Scan(&total)
	return total, err
}

// GetDeletionCountByAction returns count of operations grouped by action
func (d *DeletionDB) GetDeletionCountByAction(since time.Time) (map[string]int, error) {
	return d.countBy(`SELECT action, COUNT(*) FROM deletions WHERE timestamp >= ? GROUP BY action`, since.UTC())
}

// GetDeletionCountByObjectType counts successful deletions per object type
func (d *DeletionDB) GetDeletionCountByObjectType(since time.Time) (map[string]int, error) {
	return d.countBy(`SELECT object_type, COUNT(*) FROM deletions
	WHERE action = 'DELETE' AND timestamp >= ? GROUP BY object_type`, since.UTC())
}

// GetTopPathsByDeletionCount returns paths with most deletions
func (d *DeletionDB) GetTopPathsByDeletionCount(limit int) (map[string]int, error) {
	return d.countBy(`SELECT path, COUNT(*) AS count FROM deletions
	WHERE action = 'DELETE' GROUP BY path ORDER BY count DESC LIMIT ?`, limit)
}

func (d *DeletionDB) countBy(query string, args ...interface{}) (map[string]int, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		counts[key] = count
	}

	return counts, rows.Err()
}

// DeletionStats holds aggregated statistics
type DeletionStats struct {
	TotalDeletions  int            `json:"total_deletions"`
	TotalNotFound   int            `json:"total_not_found"`
	TotalErrors     int            `json:"total_errors"`
	TotalBlocked    int            `json:"total_blocked"`
	TotalBatches    int            `json:"total_batches"`
	TotalSpaceFreed int64          `json:"total_space_freed"`
	ByAction        map[string]int `json:"by_action"`
	ByObjectType    map[string]int `json:"by_object_type"`
	StartDate       time.Time      `json:"start_date"`
	EndDate         time.Time      `json:"end_date"`
}

// GetDeletionStats returns comprehensive statistics for the last days days
func (d *DeletionDB) GetDeletionStats(days int) (*DeletionStats, error) {
	now := time.Now().UTC()
	since := now.AddDate(0, 0, -days)

	stats := &DeletionStats{
		StartDate: since,
		EndDate:   now,
	}

	err := d.db.QueryRow(`
		SELECT
			COUNT(CASE WHEN action = 'DELETE' THEN 1 END),
			COUNT(CASE WHEN action = 'NOT_FOUND' THEN 1 END),
			COUNT(CASE WHEN action = 'ERROR' THEN 1 END),
			COUNT(CASE WHEN action = 'BLOCKED' THEN 1 END),
			COUNT(DISTINCT batch_id)
		FROM deletions
		WHERE timestamp >= ?
	`, since).Scan(&stats.TotalDeletions, &stats.TotalNotFound, &stats.TotalErrors, &stats.TotalBlocked, &stats.TotalBatches)
	if err != nil {
		return nil, err
	}

	stats.TotalSpaceFreed, err = d.GetTotalSpaceFreed(since, now)
	if err != nil {
		return nil, err
	}

	stats.ByAction, err = d.GetDeletionCountByAction(since)
	if err != nil {
		return nil, err
	}

	stats.ByObjectType, err = d.GetDeletionCountByObjectType(since)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// DeleteOldRecords removes records older than the given number of days
func (d *DeletionDB) DeleteOldRecords(olderThanDays int) (int64, error) {
	return d.DeleteRecordsBefore(time.Now().AddDate(0, 0, -olderThanDays))
}

// DeleteRecordsBefore removes records timestamped before cutoff
func (d *DeletionDB) DeleteRecordsBefore(cutoff time.Time) (int64, error) {
	result, err := d.db.Exec(`DELETE FROM deletions WHERE timestamp < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// queryDeletions is a helper function to execute queries and scan results
func (d *DeletionDB) queryDeletions(query string, args ...interface{}) ([]DeletionRecord, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []DeletionRecord
	for rows.Next() {
		var r DeletionRecord
		var fileName, errMsg sql.NullString

		err := rows.Scan(
			&r.ID, &r.BatchID, &r.Timestamp, &r.Action, &r.Path, &fileName,
			&r.ObjectType, &r.Size, &errMsg,
		)
		if err != nil {
			return nil, err
		}

		r.FileName = fileName.String
		r.ErrorMessage = errMsg.String
		records = append(records, r)
	}

	return records, rows.Err()
}

// Filter selects history rows for paginated listing. Empty fields match
// everything; Path is a LIKE pattern.
type Filter struct {
	Action string
	Path   string
	Limit  int
	Offset int
}

// GetDeletionsPaginated returns one page of rows matching f and the total
// number of matching rows.
func (d *DeletionDB) GetDeletionsPaginated(f Filter) ([]DeletionRecord, int, error) {
	where := " WHERE 1=1"
	var args []interface{}
	if f.Action != "" {
		where += " AND action = ?"
		args = append(args, f.Action)
	}
	if f.Path != "" {
		where += " AND path LIKE ?"
		args = append(args, f.Path)
	}

	var totalCount int
	if err := d.db.QueryRow("SELECT COUNT(*) FROM deletions"+where, args...).Scan(&totalCount); err != nil {
		return nil, 0, err
	}

	records, err := d.queryDeletions(selectColumns+where+" ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?",
		append(args, f.Limit, f.Offset)...)
	return records, totalCount, err
}
