// package query turns free-text track queries into a canonical form plus alternate phrasings
package query

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/samber/lo"
	"golang.org/x/text/unicode/norm"

	"github.com/desertthunder/tunex/internal/models"
)

const (
	// MaxVariants bounds the phrasings tried against single-shot sources.
	MaxVariants = 6
	// DefaultMemoSize is the number of normalized queries the [Normalizer] remembers.
	DefaultMemoSize = 1024

	separator = " - "
)

var (
	yearRe = regexp.MustCompile(`\(\s*\d{4}\s*\)`)

	stopWords = map[string]struct{}{
		"download":  {},
		"listen":    {},
		"song":      {},
		"music":     {},
		"mp3":       {},
		"free":      {},
		"скачать":   {},
		"слушать":   {},
		"песня":     {},
		"музыка":    {},
		"трек":      {},
		"бесплатно": {},
	}
)

// Fold applies NFC normalisation, lowercases, replaces every rune other than a letter,
// digit or hyphen with a space and collapses whitespace.
func Fold(s string) string {
	s = strings.ToLower(norm.NFC.String(s))
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// Clean is [Fold] with stop-words removed. It is the normalized form of a query.
func Clean(s string) string {
	words := lo.Filter(strings.Fields(Fold(s)), func(w string, _ int) bool {
		_, stop := stopWords[w]
		return !stop
	})
	return strings.Join(words, " ")
}

// Normalize derives the normalized form and ordered variants of raw.
//
// Variants, in order: the normalized text; when raw has exactly one " - " separator the
// swapped halves, then each half alone; when raw carries a parenthesized year the text
// without it. Duplicates are dropped and the list is capped at [MaxVariants].
// When nothing survives cleaning the trimmed raw text is used as-is.
func Normalize(raw string) models.SearchQuery {
	normalized := Clean(raw)
	if normalized == "" {
		trimmed := strings.TrimSpace(raw)
		return models.SearchQuery{Raw: raw, Normalized: trimmed, Variants: []string{trimmed}}
	}

	variants := []string{normalized}

	if strings.Count(raw, separator) == 1 {
		left, right, _ := strings.Cut(raw, separator)
		l, r := Clean(left), Clean(right)
		if l != "" && r != "" {
			variants = append(variants, r+" "+l, l, r)
		}
	}

	if yearRe.MatchString(raw) {
		variants = append(variants, Clean(yearRe.ReplaceAllString(raw, " ")))
	}

	variants = lo.Uniq(lo.Compact(variants))
	if len(variants) > MaxVariants {
		variants = variants[:MaxVariants]
	}

	return models.SearchQuery{Raw: raw, Normalized: normalized, Variants: variants}
}

// Words splits folded text into words.
func Words(s string) []string {
	return strings.Fields(Fold(s))
}

// SignificantWords returns the distinct words of s longer than two characters.
func SignificantWords(s string) []string {
	return lo.Uniq(lo.Filter(Words(s), func(w string, _ int) bool {
		return utf8.RuneCountInString(w) > 2
	}))
}

// Key returns the archive keys for a performer and title.
func Key(performer, title string) (performerKey, titleKey string) {
	return Fold(performer), Fold(title)
}

// Normalizer memoises [Normalize] in a bounded LRU. Safe for concurrent use.
type Normalizer struct {
	memo *lru.Cache[string, models.SearchQuery]
}

// NewNormalizer creates a Normalizer remembering up to size queries.
func NewNormalizer(size int) *Normalizer {
	if size <= 0 {
		size = DefaultMemoSize
	}
	memo, _ := lru.New[string, models.SearchQuery](size)
	return &Normalizer{memo: memo}
}

// Normalize returns the memoised result for raw, computing it on a miss.
// The returned variants slice is a copy the caller may keep.
func (n *Normalizer) Normalize(raw string) models.SearchQuery {
	q, ok := n.memo.Get(raw)
	if !ok {
		q = Normalize(raw)
		n.memo.Add(raw, q)
	}
	q.Variants = slices.Clone(q.Variants)
	return q
}

// Len reports how many queries are memoised.
func (n *Normalizer) Len() int {
	return n.memo.Len()
}
