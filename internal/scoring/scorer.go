// package scoring ranks provider results against a normalized query
package scoring

import (
	"strings"

	"github.com/samber/lo"

	"github.com/desertthunder/tunex/internal/models"
	"github.com/desertthunder/tunex/internal/query"
	"github.com/desertthunder/tunex/internal/shared"
)

// Weights are the additive components of a relevance score.
type Weights struct {
	TitleExact       int
	PerformerExact   int
	Combined         int
	TitleWord        int
	PerformerWord    int
	Completeness     int
	MaxQualityBonus  int
	Penalty          int
	QualityWeighting bool
}

// DefaultWeights returns the stock tuning.
func DefaultWeights() Weights {
	return Weights{
		TitleExact:       25,
		PerformerExact:   30,
		Combined:         50,
		TitleWord:        3,
		PerformerWord:    5,
		Completeness:     10,
		MaxQualityBonus:  10,
		Penalty:          15,
		QualityWeighting: true,
	}
}

// WeightsFromConfig overlays non-zero config values on [DefaultWeights].
func WeightsFromConfig(c shared.ScoringConfig) Weights {
	w := DefaultWeights()
	w.QualityWeighting = c.QualityWeighting
	w.TitleExact = lo.CoalesceOrEmpty(c.TitleExact, w.TitleExact)
	w.PerformerExact = lo.CoalesceOrEmpty(c.PerformerExact, w.PerformerExact)
	w.Combined = lo.CoalesceOrEmpty(c.Combined, w.Combined)
	w.TitleWord = lo.CoalesceOrEmpty(c.TitleWord, w.TitleWord)
	w.PerformerWord = lo.CoalesceOrEmpty(c.PerformerWord, w.PerformerWord)
	w.Completeness = lo.CoalesceOrEmpty(c.Completeness, w.Completeness)
	w.MaxQualityBonus = lo.CoalesceOrEmpty(c.MaxQualityBonus, w.MaxQualityBonus)
	w.Penalty = lo.CoalesceOrEmpty(c.Penalty, w.Penalty)
	return w
}

// Markers flag versions of a track the user rarely wants unless they asked for one.
var Markers = []string{
	"remix", "cover", "karaoke", "instrumental", "live",
	"ремикс", "кавер", "караоке", "минусовка",
}

// Scorer computes relevance scores. It holds no mutable state and is safe for concurrent use.
type Scorer struct {
	w Weights
}

// New creates a Scorer with the given weights.
func New(w Weights) *Scorer {
	return &Scorer{w: w}
}

// Weights returns the scorer's weights.
func (s *Scorer) Weights() Weights {
	return s.w
}

// Score rates c against q. The result is never negative.
func (s *Scorer) Score(c models.CandidateResult, q models.SearchQuery) int {
	qn := query.Fold(q.Normalized)
	title, performer := query.Fold(c.Title), query.Fold(c.Performer)
	score := 0

	if phraseOverlap(title, qn) {
		score += s.w.TitleExact
	}
	if phraseOverlap(performer, qn) {
		score += s.w.PerformerExact
	}
	if title != "" && performer != "" {
		for _, combined := range []string{performer + " - " + title, performer + " " + title, title + " " + performer} {
			if phraseOverlap(combined, qn) {
				score += s.w.Combined
				break
			}
		}
		score += s.w.Completeness
	}

	queryWords := lo.Without(lo.Uniq(strings.Fields(qn)), "-")
	score += overlap(queryWords, title) * s.w.TitleWord
	score += overlap(queryWords, performer) * s.w.PerformerWord

	if s.w.QualityWeighting {
		score += min(qualityBonus(c.SizeBytes, c.MIMEType), s.w.MaxQualityBonus)
	}

	if hasUnwantedMarker(title+" "+performer, qn) {
		score -= s.w.Penalty
	}

	return max(score, 0)
}

// IsGoodMatch is the hard relevance gate.
//
// A candidate with neither title nor performer never matches. Otherwise at least half of
// the query's significant words must occur in the title and performer text.
func (s *Scorer) IsGoodMatch(c models.CandidateResult, q models.SearchQuery) bool {
	if !c.HasMetadata() {
		return false
	}

	important := query.SignificantWords(q.Normalized)
	if len(important) == 0 {
		return true
	}

	text := query.Fold(c.Performer + " " + c.Title)
	matches := lo.CountBy(important, func(w string) bool { return strings.Contains(text, w) })
	return matches*2 >= len(important)
}

// Less reports whether a ranks strictly ahead of b: higher score, then preferred tier,
// then larger size, then earlier arrival.
func Less(a, b models.CandidateResult) bool {
	switch {
	case a.Score != b.Score:
		return a.Score > b.Score
	case a.Tier != b.Tier:
		return a.Tier == models.TierPreferred
	case a.SizeBytes != b.SizeBytes:
		return a.SizeBytes > b.SizeBytes
	default:
		return a.Arrival < b.Arrival
	}
}

// Best returns the top candidate by [Less], or false when cands is empty.
func Best(cands []models.CandidateResult) (models.CandidateResult, bool) {
	if len(cands) == 0 {
		return models.CandidateResult{}, false
	}
	return lo.MinBy(cands, Less), true
}

// phraseOverlap reports whether a contains b or b contains a on word boundaries.
func phraseOverlap(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	pa, pb := " "+a+" ", " "+b+" "
	return strings.Contains(pa, pb) || strings.Contains(pb, pa)
}

// overlap counts distinct field words present in words.
func overlap(words []string, field string) int {
	if field == "" {
		return 0
	}
	return lo.CountBy(lo.Uniq(strings.Fields(field)), func(w string) bool {
		return lo.Contains(words, w)
	})
}

// hasUnwantedMarker reports whether text carries a marker word the query does not.
// Both sides are compared as whole words, hyphenated compounds split.
func hasUnwantedMarker(text, q string) bool {
	words, asked := markerWords(text), markerWords(q)
	return lo.SomeBy(Markers, func(m string) bool {
		return lo.Contains(words, m) && !lo.Contains(asked, m)
	})
}

func markerWords(s string) []string {
	return lo.FlatMap(query.Words(s), func(w string, _ int) []string {
		return strings.Split(w, "-")
	})
}
