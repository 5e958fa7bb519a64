package models

import (
	"fmt"
	"time"
)

// ArchivedCandidate is the persistent form of an archive entry.
//
// Implements [Model]. The id and sequence are assigned by the repository on create.
type ArchivedCandidate struct {
	id           string
	sequence     int
	performerKey string
	titleKey     string
	candidate    CandidateResult
	createdAt    time.Time
	updatedAt    time.Time
}

// NewArchivedCandidate wraps a delivered candidate and its archive keys.
func NewArchivedCandidate(performerKey, titleKey string, c CandidateResult, at time.Time) *ArchivedCandidate {
	return &ArchivedCandidate{
		performerKey: performerKey,
		titleKey:     titleKey,
		candidate:    c,
		createdAt:    at,
		updatedAt:    at,
	}
}

func (a *ArchivedCandidate) ID() string { return a.id }
func (a *ArchivedCandidate) Sequence() int { return a.sequence }
func (a *ArchivedCandidate) PerformerKey() string { return a.performerKey }
func (a *ArchivedCandidate) TitleKey() string { return a.titleKey }
func (a *ArchivedCandidate) Candidate() CandidateResult { return a.candidate }
func (a *ArchivedCandidate) CreatedAt() time.Time { return a.createdAt }
func (a *ArchivedCandidate) UpdatedAt() time.Time { return a.updatedAt }

func (a *ArchivedCandidate) SetID(id string) { a.id = id }
func (a *ArchivedCandidate) SetSequence(n int) { a.sequence = n }
func (a *ArchivedCandidate) SetUpdatedAt(t time.Time) { a.updatedAt = t }
func (a *ArchivedCandidate) SetCreatedAt(t time.Time) { a.createdAt = t }

// Validate checks the fields the archive relies on.
func (a *ArchivedCandidate) Validate() error {
	switch {
	case a.id == "":
		return fmt.Errorf("archived candidate id is required")
	case a.candidate.PayloadRef == "":
		return fmt.Errorf("archived candidate payload ref is required")
	case a.candidate.SourceID == "":
		return fmt.Errorf("archived candidate source id is required")
	case !a.candidate.HasMetadata():
		return fmt.Errorf("archived candidate needs a title or performer")
	}
	return nil
}

// Entry converts the row into an in-memory [ArchiveEntry] with the given ttl.
func (a *ArchivedCandidate) Entry(ttl time.Duration) ArchiveEntry {
	return ArchiveEntry{
		PerformerKey: a.performerKey,
		TitleKey:     a.titleKey,
		Candidate:    a.candidate,
		InsertedAt:   a.createdAt,
		TTL:          ttl,
		Seq:          a.sequence,
	}
}
