package scoring

import (
	"strings"
)

const (
	mb = 1 << 20
)

// qualityBonus favours larger files and higher-fidelity formats.
// Callers cap it so it only separates otherwise similar candidates.
func qualityBonus(size int64, mime string) int {
	bonus := 0
	switch {
	case size > 8*mb:
		bonus += 6
	case size > 3*mb:
		bonus += 4
	case size > 1*mb:
		bonus += 2
	}
	return bonus + mimeBonus(mime)
}

func mimeBonus(mime string) int {
	mime = strings.ToLower(mime)
	switch {
	case strings.Contains(mime, "flac"):
		return 4
	case strings.Contains(mime, "wav"), strings.Contains(mime, "alac"):
		return 3
	case strings.Contains(mime, "m4a"), strings.Contains(mime, "aac"), strings.Contains(mime, "mp4"):
		return 2
	case strings.Contains(mime, "ogg"), strings.Contains(mime, "opus"):
		return 1
	default:
		return 0
	}
}

// IsAudio reports whether mime names an audio payload the scorer understands.
// An empty MIME type is accepted since several providers omit it.
func IsAudio(mime string) bool {
	mime = strings.ToLower(strings.TrimSpace(mime))
	return mime == "" || strings.HasPrefix(mime, "audio/") || mime == "application/ogg"
}
