package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/tunex/internal/models"
	"github.com/desertthunder/tunex/internal/query"
	"github.com/desertthunder/tunex/internal/shared"
)

func candidate(title, performer string, size int64, mime string) models.CandidateResult {
	return models.CandidateResult{
		SourceID:   "test",
		Title:      title,
		Performer:  performer,
		SizeBytes:  size,
		MIMEType:   mime,
		PayloadRef: "ref",
	}
}

func TestScore(t *testing.T) {
	s := New(DefaultWeights())
	q := query.Normalize("ed sheeran shape of you")

	t.Run("exact performer and title", func(t *testing.T) {
		c := candidate("Shape of You", "Ed Sheeran", 4_000_000, "audio/mpeg")
		assert.Equal(t, 138, s.Score(c, q))
		assert.True(t, s.IsGoodMatch(c, q))
	})

	t.Run("remix is penalised", func(t *testing.T) {
		plain := s.Score(candidate("Shape of You", "Ed Sheeran", 4_000_000, "audio/mpeg"), q)
		remix := s.Score(candidate("Shape of You (Remix)", "Ed Sheeran", 4_000_000, "audio/mpeg"), q)
		assert.Less(t, remix, plain)
	})

	t.Run("no penalty when the query asks for the marker", func(t *testing.T) {
		rq := query.Normalize("ed sheeran shape of you remix")
		c := candidate("Shape of You Remix", "Ed Sheeran", 0, "")
		w := DefaultWeights()
		w.Penalty = 1000
		assert.Positive(t, New(w).Score(c, rq))
	})

	t.Run("markers match whole words only", func(t *testing.T) {
		w := DefaultWeights()
		w.Penalty = 1000
		strict := New(w)

		lq := query.Normalize("jamie oliver lively tune")
		assert.Positive(t, strict.Score(candidate("Lively Tune", "Jamie Oliver", 0, ""), lq))

		cq := query.Normalize("covered in rain")
		assert.Positive(t, strict.Score(candidate("Covered in Rain", "Someone", 0, ""), cq))

		oq := query.Normalize("oliver tree")
		assert.Equal(t, 0, strict.Score(candidate("Oliver Tree (Live)", "Oliver Tree", 0, ""), oq),
			"a query word containing a marker does not lift the penalty")
		assert.Equal(t, 0, strict.Score(candidate("Oliver Tree Live-Session", "Oliver Tree", 0, ""), oq))
	})

	t.Run("never negative", func(t *testing.T) {
		c := candidate("Karaoke Version", "Cover Band", 0, "")
		assert.Equal(t, 0, s.Score(c, q))
	})

	t.Run("quality bonus is capped", func(t *testing.T) {
		big := candidate("Shape of You", "Ed Sheeran", 20*mb, "audio/flac")
		small := candidate("Shape of You", "Ed Sheeran", 0, "audio/mpeg")
		assert.Equal(t, 10, s.Score(big, q)-s.Score(small, q))

		w := DefaultWeights()
		w.MaxQualityBonus = 5
		capped := New(w)
		assert.Equal(t, 5, capped.Score(big, q)-capped.Score(small, q))
	})

	t.Run("quality weighting disabled", func(t *testing.T) {
		w := DefaultWeights()
		w.QualityWeighting = false
		off := New(w)
		assert.Equal(t,
			off.Score(candidate("Shape of You", "Ed Sheeran", 20*mb, "audio/flac"), q),
			off.Score(candidate("Shape of You", "Ed Sheeran", 0, ""), q))
	})

	t.Run("quality never overturns a textual mismatch", func(t *testing.T) {
		good := candidate("Shape of You", "Ed Sheeran", 0, "")
		weak := candidate("Shape", "Someone Else", 50*mb, "audio/flac")
		assert.Greater(t, s.Score(good, q), s.Score(weak, q))
	})
}

func TestScoreMonotonic(t *testing.T) {
	s := New(DefaultWeights())
	queries := []string{"ed sheeran shape of you", "imagine dragons believer", "кино группа крови"}
	bases := []models.CandidateResult{
		candidate("", "Ed Sheeran", 0, ""),
		candidate("Shape", "Ed Sheeran", 2*mb, "audio/mpeg"),
		candidate("Believer (Live)", "", 0, "audio/ogg"),
		candidate("Something Else", "Imagine Dragons", 9*mb, "audio/flac"),
		candidate("Группа", "Кино", 0, ""),
	}

	for _, raw := range queries {
		q := query.Normalize(raw)
		for _, base := range bases {
			before := s.Score(base, q)

			appended := base
			appended.Title = base.Title + " " + q.Normalized
			prepended := base
			prepended.Title = q.Normalized + " " + base.Title

			assert.GreaterOrEqual(t, s.Score(appended, q), before, "%q + %q", base.Title, raw)
			assert.GreaterOrEqual(t, s.Score(prepended, q), before, "%q + %q", base.Title, raw)
		}
	}
}

func TestIsGoodMatch(t *testing.T) {
	s := New(DefaultWeights())

	tc := []struct {
		name  string
		query string
		c     models.CandidateResult
		want  bool
	}{
		{"no metadata", "ed sheeran shape of you", candidate("", "", 5*mb, "audio/flac"), false},
		{"unrelated track", "ed sheeran shape of you", candidate("Believer", "Imagine Dragons", 0, ""), false},
		{"title only, two of three words", "ed sheeran shape of you", candidate("Shape of You", "", 0, ""), true},
		{"one of three words", "ed sheeran shape of you", candidate("Shape", "", 0, ""), false},
		{"exactly half", "imagine dragons believer thunder", candidate("Thunder", "Imagine", 0, ""), true},
		{"below half", "imagine dragons believer thunder", candidate("Thunder", "", 0, ""), false},
		{"no significant words", "u2", candidate("One", "U2", 0, ""), true},
		{"performer only", "imagine dragons", candidate("", "Imagine Dragons", 0, ""), true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.IsGoodMatch(tt.c, query.Normalize(tt.query)))
		})
	}

	t.Run("rejects below half for every query with two or more significant words", func(t *testing.T) {
		queries := []string{"imagine dragons believer", "ed sheeran shape of you", "queen bohemian rhapsody live aid"}
		for _, raw := range queries {
			q := query.Normalize(raw)
			words := query.SignificantWords(q.Normalized)
			require.GreaterOrEqual(t, len(words), 2)

			keep := (len(words) - 1) / 2
			title := ""
			for _, w := range words[:keep] {
				title += w + " "
			}
			c := candidate(title+"zzz", "qqq", 0, "")
			assert.False(t, s.IsGoodMatch(c, q), raw)
		}
	})
}

func TestOrdering(t *testing.T) {
	base := candidate("Shape of You", "Ed Sheeran", 0, "")

	withScore := func(score int, tier models.Tier, size int64, arrival int) models.CandidateResult {
		c := base
		c.Score, c.Tier, c.SizeBytes, c.Arrival = score, tier, size, arrival
		return c
	}

	t.Run("Less", func(t *testing.T) {
		assert.True(t, Less(withScore(42, models.TierNormal, 0, 5), withScore(40, models.TierPreferred, 9, 0)))
		assert.True(t, Less(withScore(40, models.TierPreferred, 0, 5), withScore(40, models.TierNormal, 9, 0)))
		assert.True(t, Less(withScore(40, models.TierNormal, 9, 5), withScore(40, models.TierNormal, 1, 0)))
		assert.True(t, Less(withScore(40, models.TierNormal, 1, 0), withScore(40, models.TierNormal, 1, 1)))
		assert.False(t, Less(withScore(40, models.TierNormal, 1, 1), withScore(40, models.TierNormal, 1, 1)))
	})

	t.Run("Best", func(t *testing.T) {
		_, ok := Best(nil)
		assert.False(t, ok)

		best, ok := Best([]models.CandidateResult{
			withScore(40, models.TierNormal, 5, 0),
			withScore(42, models.TierNormal, 1, 1),
			withScore(42, models.TierPreferred, 1, 2),
			withScore(42, models.TierPreferred, 1, 3),
		})
		require.True(t, ok)
		assert.Equal(t, 2, best.Arrival)
	})
}

func TestWeightsFromConfig(t *testing.T) {
	w := WeightsFromConfig(shared.ScoringConfig{QualityWeighting: false, Combined: 70})
	assert.Equal(t, 70, w.Combined)
	assert.Equal(t, DefaultWeights().TitleExact, w.TitleExact)
	assert.False(t, w.QualityWeighting)
}

func TestIsAudio(t *testing.T) {
	assert.True(t, IsAudio("audio/mpeg"))
	assert.True(t, IsAudio(""))
	assert.True(t, IsAudio("application/ogg"))
	assert.False(t, IsAudio("image/jpeg"))
	assert.False(t, IsAudio("video/mp4"))
}
