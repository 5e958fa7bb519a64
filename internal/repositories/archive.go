package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/tunex/internal/models"
	"github.com/desertthunder/tunex/internal/shared"
)

const archiveColumns = `id, seq, performer_key, title_key, source_id, tier, title, performer,
	duration_seconds, size_bytes, mime_type, payload_ref, score, created_at, updated_at`

// ArchiveRepository implements models.Repository[*models.ArchivedCandidate].
//
// Rows are unique per (performer_key, title_key); creating a row for an archived track replaces it.
type ArchiveRepository struct {
	db *sql.DB
}

// NewArchiveRepository creates a new ArchiveRepository with the given database connection
func NewArchiveRepository(db *sql.DB) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

// Create inserts a [models.ArchivedCandidate] with a generated ID and sequence,
// replacing any row for the same performer and title.
func (r *ArchiveRepository) Create(a *models.ArchivedCandidate) error {
	sequence, err := NextSequence(r.db, "archive_entries")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	a.SetID(shared.GenerateID())
	a.SetSequence(sequence)

	if err := a.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	c := a.Candidate()
	_, err = r.db.Exec(`INSERT OR REPLACE INTO archive_entries (`+archiveColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID(),
		a.Sequence(),
		a.PerformerKey(),
		a.TitleKey(),
		c.SourceID,
		c.Tier.String(),
		c.Title,
		c.Performer,
		c.DurationSeconds,
		c.SizeBytes,
		c.MIMEType,
		c.PayloadRef,
		c.Score,
		a.CreatedAt().UTC(),
		a.UpdatedAt().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert archive entry: %w", err)
	}
	return nil
}

// Get retrieves an archived candidate by ID
func (r *ArchiveRepository) Get(id string) (*models.ArchivedCandidate, error) {
	row := r.db.QueryRow(`SELECT `+archiveColumns+` FROM archive_entries WHERE id = ?`, id)
	a, err := scanArchived(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrArchiveNotFound, id)
	}
	return a, err
}

// Delete removes an archived candidate by ID
func (r *ArchiveRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM archive_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete archive entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrArchiveNotFound, id)
	}
	return nil
}

// List retrieves archived candidates matching the criteria, oldest first.
//
// Supported criteria: "source_id" (string), "performer_key" (string), "since" ([time.Time]), "limit" (int).
func (r *ArchiveRepository) List(criteria map[string]any) ([]*models.ArchivedCandidate, error) {
	query := `SELECT ` + archiveColumns + ` FROM archive_entries WHERE 1 = 1`
	args := []any{}

	if source, ok := criteria["source_id"].(string); ok && source != "" {
		query += " AND source_id = ?"
		args = append(args, source)
	}

	if performer, ok := criteria["performer_key"].(string); ok && performer != "" {
		query += " AND performer_key = ?"
		args = append(args, performer)
	}

	if since, ok := criteria["since"].(time.Time); ok {
		query += " AND created_at > ?"
		args = append(args, since.UTC())
	}

	query += " ORDER BY seq ASC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query archive entries: %w", err)
	}
	defer rows.Close()

	var out []*models.ArchivedCandidate
	for rows.Next() {
		a, err := scanArchived(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

// ListSince returns rows created after cutoff, oldest first.
func (r *ArchiveRepository) ListSince(cutoff time.Time) ([]*models.ArchivedCandidate, error) {
	return r.List(map[string]any{"since": cutoff})
}

// DeleteAll removes every archived row and returns how many were removed.
func (r *ArchiveRepository) DeleteAll() (int64, error) {
	result, err := r.db.Exec(`DELETE FROM archive_entries`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear archive: %w", err)
	}
	return result.RowsAffected()
}

// DeleteBefore removes rows created at or before cutoff and returns how many were removed.
func (r *ArchiveRepository) DeleteBefore(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM archive_entries WHERE created_at <= ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune archive: %w", err)
	}
	return result.RowsAffected()
}

// DeleteTrack removes the row for a performer and title and reports whether one existed.
func (r *ArchiveRepository) DeleteTrack(performerKey, titleKey string) (bool, error) {
	result, err := r.db.Exec(`DELETE FROM archive_entries WHERE performer_key = ? AND title_key = ?`,
		performerKey, titleKey)
	if err != nil {
		return false, fmt.Errorf("failed to delete archive entry: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanArchived scans a [sql.Row] or [sql.Rows] into a [models.ArchivedCandidate]
func scanArchived(s scanner) (*models.ArchivedCandidate, error) {
	var (
		id, performerKey, titleKey string
		seq                        int
		tier                       string
		c                          models.CandidateResult
		createdAt, updatedAt       time.Time
	)

	err := s.Scan(&id, &seq, &performerKey, &titleKey, &c.SourceID, &tier, &c.Title, &c.Performer,
		&c.DurationSeconds, &c.SizeBytes, &c.MIMEType, &c.PayloadRef, &c.Score, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan archive entry: %w", err)
	}
	c.Tier = models.ParseTier(tier)

	a := models.NewArchivedCandidate(performerKey, titleKey, c, createdAt)
	a.SetID(id)
	a.SetSequence(seq)
	a.SetUpdatedAt(updatedAt)
	return a, nil
}
