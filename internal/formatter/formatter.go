// package formatter renders search results as text, JSON, or Markdown captions
package formatter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/tunex/internal/models"
	"github.com/desertthunder/tunex/internal/shared"
)

// Format selects a rendering.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts text, txt, json, markdown and md.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: format %q (want text, json or markdown)", shared.ErrInvalidFlag, s)
	}
}

// Delivery is a delivered result together with the query that produced it.
type Delivery struct {
	Query     string                 `json:"query"`
	Found     bool                   `json:"found"`
	Origin    string                 `json:"origin,omitempty"`
	Elapsed   time.Duration          `json:"-"`
	ElapsedMS int64                  `json:"elapsed_ms"`
	Candidate models.CandidateResult `json:"candidate,omitzero"`
}

// NewDelivery builds a Delivery and fills in the millisecond elapsed field.
func NewDelivery(query string, c models.CandidateResult, found bool, origin string, elapsed time.Duration) Delivery {
	return Delivery{
		Query:     query,
		Found:     found,
		Origin:    origin,
		Elapsed:   elapsed,
		ElapsedMS: elapsed.Milliseconds(),
		Candidate: c,
	}
}

// Render dispatches to the renderer for f.
func Render(d Delivery, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return ToJSON(d)
	case FormatMarkdown:
		return ToMarkdown(d), nil
	case FormatText, "":
		return ToText(d), nil
	default:
		return nil, fmt.Errorf("%w: format %q", shared.ErrInvalidFlag, f)
	}
}

// Caption lists the performer, title, duration, source and query, one per line, skipping absent fields.
func Caption(c models.CandidateResult, query string) string {
	var parts []string
	if c.Performer != "" {
		parts = append(parts, "Performer: "+c.Performer)
	}
	if c.Title != "" {
		parts = append(parts, "Title: "+c.Title)
	}
	if c.DurationSeconds > 0 {
		parts = append(parts, "Duration: "+FormatDuration(c.DurationSeconds))
	}
	if c.SourceID != "" {
		parts = append(parts, "Source: "+c.SourceID)
	}
	parts = append(parts, "Query: "+query)
	return strings.Join(parts, "\n")
}

// ToText renders a delivery as plain text.
func ToText(d Delivery) []byte {
	var buf bytes.Buffer
	if !d.Found {
		fmt.Fprintf(&buf, "No match for %q\n", d.Query)
		return buf.Bytes()
	}

	buf.WriteString(Caption(d.Candidate, d.Query))
	buf.WriteString("\n")
	if d.Candidate.SizeBytes > 0 {
		fmt.Fprintf(&buf, "Size: %s\n", FormatSize(d.Candidate.SizeBytes))
	}
	fmt.Fprintf(&buf, "Score: %d\n", d.Candidate.Score)
	fmt.Fprintf(&buf, "Payload: %s\n", d.Candidate.PayloadRef)
	if d.Origin != "" {
		fmt.Fprintf(&buf, "Answered by %s in %s\n", d.Origin, d.Elapsed.Round(time.Millisecond))
	}
	return buf.Bytes()
}

// ToMarkdown renders a delivery as a Markdown section.
func ToMarkdown(d Delivery) []byte {
	var buf bytes.Buffer
	if !d.Found {
		fmt.Fprintf(&buf, "# No match\n\n**Query**: %s\n", d.Query)
		return buf.Bytes()
	}

	c := d.Candidate
	fmt.Fprintf(&buf, "# %s\n\n", c.Label())
	if c.Performer != "" {
		fmt.Fprintf(&buf, "**Performer**: %s\n", c.Performer)
	}
	if c.Title != "" {
		fmt.Fprintf(&buf, "**Title**: %s\n", c.Title)
	}
	if c.DurationSeconds > 0 {
		fmt.Fprintf(&buf, "**Duration**: %s\n", FormatDuration(c.DurationSeconds))
	}
	if c.SizeBytes > 0 {
		fmt.Fprintf(&buf, "**Size**: %s\n", FormatSize(c.SizeBytes))
	}
	if c.MIMEType != "" {
		fmt.Fprintf(&buf, "**Type**: %s\n", c.MIMEType)
	}
	fmt.Fprintf(&buf, "**Source**: %s\n", c.SourceID)
	fmt.Fprintf(&buf, "**Score**: %d\n\n", c.Score)
	fmt.Fprintf(&buf, "**Query**: %s\n", d.Query)
	fmt.Fprintf(&buf, "`%s`\n", c.PayloadRef)
	return buf.Bytes()
}

// ToJSON renders a delivery as indented JSON.
func ToJSON(d Delivery) ([]byte, error) {
	return MarshalJSON(d, true)
}

// MarshalJSON marshals v, indented with two spaces when pretty is set.
func MarshalJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return data, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return data, nil
}

// FormatDuration renders seconds as m:ss, or h:mm:ss from an hour up.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatSize renders a byte count in decimal units.
func FormatSize(n int64) string {
	const unit = 1000
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}
