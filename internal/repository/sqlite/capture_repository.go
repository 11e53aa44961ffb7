package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"intruderwatch/internal/model"
)

// CaptureRepository implements repository.CaptureRepository for SQLite.
type CaptureRepository struct {
	db *DB
}

// NewCaptureRepository creates a new SQLite capture repository.
func NewCaptureRepository(db *DB) *CaptureRepository {
	return &CaptureRepository{db: db}
}

// Insert adds a new capture record to the database.
func (r *CaptureRepository) Insert(c *model.Capture) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO captures (uuid, camera, timestamp)
		VALUES (?, ?, ?)
	`, c.UUID, c.Camera, c.Timestamp)
	if err != nil {
		return 0, fmt.Errorf("failed to insert capture: %w", err)
	}

	return result.LastInsertId()
}

// GetByUUID retrieves a capture by its UUID. A missing capture yields nil, nil.
func (r *CaptureRepository) GetByUUID(uuid string) (*model.Capture, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var c model.Capture
	err := r.db.Conn().QueryRow(`
		SELECT id, uuid, camera, timestamp FROM captures WHERE uuid = ?
	`, uuid).Scan(&c.ID, &c.UUID, &c.Camera, &c.Timestamp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get capture: %w", err)
	}
	return &c, nil
}

// whereClause builds the shared filter conditions for capture queries.
func whereClause(filter *model.CaptureFilter) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString(" WHERE 1=1")
	args := []interface{}{}

	if filter == nil {
		return sb.String(), args
	}

	if filter.Camera != "" {
		sb.WriteString(" AND c.camera = ?")
		args = append(args, filter.Camera)
	}

	if filter.Label != "" {
		sb.WriteString(" AND d.label = ?")
		args = append(args, filter.Label)
	}

	if !filter.StartDate.IsZero() {
		sb.WriteString(" AND DATE(c.timestamp) >= DATE(?)")
		args = append(args, filter.StartDate.Format("2006-01-02"))
	}

	if !filter.EndDate.IsZero() {
		sb.WriteString(" AND DATE(c.timestamp) <= DATE(?)")
		args = append(args, filter.EndDate.Format("2006-01-02"))
	}

	return sb.String(), args
}

// GetAll retrieves captures newest first, based on filter criteria.
func (r *CaptureRepository) GetAll(filter *model.CaptureFilter) ([]model.Capture, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := whereClause(filter)
	query := `
		SELECT DISTINCT c.id, c.uuid, c.camera, c.timestamp
		FROM captures c
		LEFT JOIN detections d ON c.id = d.capture_id
	` + where + " ORDER BY c.timestamp DESC, c.id DESC"

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query captures: %w", err)
	}
	defer rows.Close()

	var captures []model.Capture
	for rows.Next() {
		var c model.Capture
		if err := rows.Scan(&c.ID, &c.UUID, &c.Camera, &c.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan capture: %w", err)
		}
		captures = append(captures, c)
	}

	return captures, rows.Err()
}

// GetTotalCount returns the total count of captures matching the filter.
func (r *CaptureRepository) GetTotalCount(filter *model.CaptureFilter) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := whereClause(filter)
	query := `
		SELECT COUNT(DISTINCT c.id)
		FROM captures c
		LEFT JOIN detections d ON c.id = d.capture_id
	` + where

	var count int
	if err := r.db.Conn().QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count captures: %w", err)
	}

	return count, nil
}

// GetStats returns statistics about stored captures.
func (r *CaptureRepository) GetStats() (*model.CaptureStats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	stats := &model.CaptureStats{
		PerCategory: make(map[string]int),
		LabelCounts: make(map[string]int),
	}

	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM captures`).Scan(&stats.TotalCaptures); err != nil {
		return nil, fmt.Errorf("failed to count captures: %w", err)
	}

	if err := r.db.Conn().QueryRow(`SELECT COALESCE(SUM(filesize), 0) FROM artifacts`).Scan(&stats.TotalSizeBytes); err != nil {
		return nil, fmt.Errorf("failed to sum artifact sizes: %w", err)
	}

	if err := countInto(r.db.Conn(), `SELECT category, COUNT(*) FROM artifacts GROUP BY category`, stats.PerCategory); err != nil {
		return nil, err
	}

	if err := countInto(r.db.Conn(), `
		SELECT label, COUNT(*) AS cnt
		FROM detections
		GROUP BY label
		ORDER BY cnt DESC
		LIMIT 10
	`, stats.LabelCounts); err != nil {
		return nil, err
	}

	return stats, nil
}

func countInto(conn *sql.DB, query string, into map[string]int) error {
	rows, err := conn.Query(query)
	if err != nil {
		return fmt.Errorf("failed to query counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("failed to scan count: %w", err)
		}
		into[key] = count
	}
	return rows.Err()
}

// Delete removes a capture together with its artifacts and detections.
func (r *CaptureRepository) Delete(id int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	for _, stmt := range []string{
		`DELETE FROM detections WHERE capture_id = ?`,
		`DELETE FROM artifacts WHERE capture_id = ?`,
		`DELETE FROM captures WHERE id = ?`,
	} {
		if _, err := r.db.Conn().Exec(stmt, id); err != nil {
			return fmt.Errorf("failed to delete capture %d: %w", id, err)
		}
	}
	return nil
}

// DeleteAll removes all captures, artifacts and detections.
func (r *CaptureRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	for _, table := range []string{"detections", "artifacts", "captures"} {
		if _, err := r.db.Conn().Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("failed to delete %s: %w", table, err)
		}
	}

	return nil
}
