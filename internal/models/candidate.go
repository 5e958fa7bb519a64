package models

import (
	"fmt"
	"time"
)

// Tier is the priority class of a source.
type Tier int

const (
	TierNormal Tier = iota
	TierPreferred
)

func (t Tier) String() string {
	switch t {
	case TierPreferred:
		return "preferred"
	default:
		return "normal"
	}
}

// ParseTier converts a config value into a [Tier]. Unknown values map to [TierNormal].
func ParseTier(s string) Tier {
	if s == "preferred" {
		return TierPreferred
	}
	return TierNormal
}

// SourceHandle identifies one configured provider.
type SourceHandle struct {
	ID   string
	Tier Tier
}

// SearchQuery is created once per search call and never mutated.
type SearchQuery struct {
	Raw        string
	Normalized string
	Variants   []string // priority order for single-shot sources
}

// RawResult is one provider result before scoring.
//
// Absent fields are zero values.
type RawResult struct {
	Title           string
	Performer       string
	DurationSeconds int
	SizeBytes       int64
	MIMEType        string
	PayloadRef      string // opaque handle to the deliverable, never interpreted
}

// CandidateResult is a scored provider result.
type CandidateResult struct {
	SourceID        string `json:"source_id"`
	Tier            Tier   `json:"-"`
	Title           string `json:"title"`
	Performer       string `json:"performer"`
	DurationSeconds int    `json:"duration_seconds"`
	SizeBytes       int64  `json:"size_bytes"`
	MIMEType        string `json:"mime_type"`
	PayloadRef      string `json:"payload_ref"`
	Score           int    `json:"score"`
	Arrival         int    `json:"-"` // completion sequence, used as the last tie-break
}

// NewCandidate copies a [RawResult] into an unscored candidate for the given source.
func NewCandidate(source SourceHandle, raw RawResult) CandidateResult {
	return CandidateResult{
		SourceID:        source.ID,
		Tier:            source.Tier,
		Title:           raw.Title,
		Performer:       raw.Performer,
		DurationSeconds: raw.DurationSeconds,
		SizeBytes:       raw.SizeBytes,
		MIMEType:        raw.MIMEType,
		PayloadRef:      raw.PayloadRef,
	}
}

// WithScore returns a copy carrying score s.
func (c CandidateResult) WithScore(s int) CandidateResult {
	if s < 0 {
		s = 0
	}
	c.Score = s
	return c
}

// WithArrival returns a copy carrying arrival sequence n.
func (c CandidateResult) WithArrival(n int) CandidateResult {
	c.Arrival = n
	return c
}

// HasMetadata reports whether the candidate carries a title or a performer.
func (c CandidateResult) HasMetadata() bool {
	return c.Title != "" || c.Performer != ""
}

// Label renders "performer - title", falling back to whichever field is present.
func (c CandidateResult) Label() string {
	switch {
	case c.Performer != "" && c.Title != "":
		return fmt.Sprintf("%s - %s", c.Performer, c.Title)
	case c.Title != "":
		return c.Title
	default:
		return c.Performer
	}
}

// CacheEntry is a memoised best candidate for a cache key.
type CacheEntry struct {
	Key        string
	Candidate  CandidateResult
	InsertedAt time.Time
	TTL        time.Duration
}

// Expired reports whether the entry is past its TTL at now.
func (e CacheEntry) Expired(now time.Time) bool {
	return now.Sub(e.InsertedAt) >= e.TTL
}

// ArchiveEntry is a delivered candidate keyed by its own metadata.
type ArchiveEntry struct {
	PerformerKey string
	TitleKey     string
	Candidate    CandidateResult
	InsertedAt   time.Time
	TTL          time.Duration
	Seq          int
}

// Expired reports whether the entry is past its TTL at now.
func (e ArchiveEntry) Expired(now time.Time) bool {
	return now.Sub(e.InsertedAt) >= e.TTL
}

// SourceOutcome is the explicit result of one provider task.
type SourceOutcome struct {
	Source    SourceHandle
	Candidate CandidateResult
	Found     bool
	Err       error
	Elapsed   time.Duration
}
