package repositories

import (
	"time"

	"github.com/desertthunder/tunex/internal/models"
)

// ArchivePersister implements archive.Persister using ArchiveRepository.
type ArchivePersister struct {
	repo *ArchiveRepository
}

// NewArchivePersister creates a new ArchivePersister with the given repository
func NewArchivePersister(repo *ArchiveRepository) *ArchivePersister {
	return &ArchivePersister{repo: repo}
}

// Save writes an archive entry, replacing the row for the same performer and title.
func (p *ArchivePersister) Save(entry models.ArchiveEntry) error {
	row := models.NewArchivedCandidate(entry.PerformerKey, entry.TitleKey, entry.Candidate, entry.InsertedAt)
	return p.repo.Create(row)
}

// LoadSince returns entries created after cutoff. TTLs are left for the store to fill in.
func (p *ArchivePersister) LoadSince(cutoff time.Time) ([]models.ArchiveEntry, error) {
	rows, err := p.repo.ListSince(cutoff)
	if err != nil {
		return nil, err
	}

	entries := make([]models.ArchiveEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.Entry(0))
	}
	return entries, nil
}

// Prune deletes entries created at or before cutoff.
func (p *ArchivePersister) Prune(cutoff time.Time) (int, error) {
	n, err := p.repo.DeleteBefore(cutoff)
	return int(n), err
}

// Remove deletes the rows for the given entries. Entries without a row are skipped.
func (p *ArchivePersister) Remove(entries []models.ArchiveEntry) error {
	for _, e := range entries {
		if _, err := p.repo.DeleteTrack(e.PerformerKey, e.TitleKey); err != nil {
			return err
		}
	}
	return nil
}

// Clear removes every persisted entry.
func (p *ArchivePersister) Clear() error {
	_, err := p.repo.DeleteAll()
	return err
}
