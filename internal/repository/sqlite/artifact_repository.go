package sqlite

import (
	"fmt"

	"intruderwatch/internal/model"
)

// ArtifactRepository implements repository.ArtifactRepository for SQLite.
type ArtifactRepository struct {
	db *DB
}

// NewArtifactRepository creates a new SQLite artifact repository.
func NewArtifactRepository(db *DB) *ArtifactRepository {
	return &ArtifactRepository{db: db}
}

// InsertBatch adds multiple artifacts in a single transaction.
func (r *ArtifactRepository) InsertBatch(artifacts []model.Artifact) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO artifacts (capture_id, category, filename, filepath, filesize)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, a := range artifacts {
		if _, err := stmt.Exec(a.CaptureID, a.Category, a.Filename, a.FilePath, a.FileSize); err != nil {
			return fmt.Errorf("failed to insert artifact: %w", err)
		}
	}

	return tx.Commit()
}

// GetByCaptureID retrieves all artifacts written for a capture.
func (r *ArtifactRepository) GetByCaptureID(captureID int64) ([]model.Artifact, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, capture_id, category, filename, filepath, filesize
		FROM artifacts WHERE capture_id = ? ORDER BY id
	`, captureID)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []model.Artifact
	for rows.Next() {
		var a model.Artifact
		if err := rows.Scan(&a.ID, &a.CaptureID, &a.Category, &a.Filename, &a.FilePath, &a.FileSize); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		artifacts = append(artifacts, a)
	}

	return artifacts, rows.Err()
}

// GetTotalSize returns the summed size in bytes of all indexed artifacts.
func (r *ArtifactRepository) GetTotalSize() (int64, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var size int64
	if err := r.db.Conn().QueryRow(`SELECT COALESCE(SUM(filesize), 0) FROM artifacts`).Scan(&size); err != nil {
		return 0, fmt.Errorf("failed to sum artifact sizes: %w", err)
	}
	return size, nil
}
