// HTTP search proxy [SourceClient] implementation
//
// A proxy exposes GET /api/search?q=...&source=... and answers with a JSON array of audio
// results. One proxy usually fronts several upstream providers, selected by the source parameter.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/tunex/internal/models"
	"github.com/desertthunder/tunex/internal/shared"
)

const defaultProxyURL string = "http://127.0.0.1:8090"

// httpResult is one element of the proxy payload. Providers disagree on a few field
// names, so both spellings are accepted.
type httpResult struct {
	Title     string `json:"title"`
	Performer string `json:"performer"`
	Artist    string `json:"artist"`
	Duration  int    `json:"duration"`
	FileSize  int64  `json:"file_size"`
	Size      int64  `json:"size"`
	MIMEType  string `json:"mime_type"`
	FileID    string `json:"file_id"`
	URL       string `json:"url"`
}

// parseHTTPResults maps a decoded proxy payload to raw results.
// Missing fields stay at their zero value; the payload ref prefers file_id over url.
func parseHTTPResults(items []httpResult) []models.RawResult {
	out := make([]models.RawResult, 0, len(items))
	for _, it := range items {
		out = append(out, models.RawResult{
			Title:           strings.TrimSpace(it.Title),
			Performer:       strings.TrimSpace(firstNonEmpty(it.Performer, it.Artist)),
			DurationSeconds: max(it.Duration, 0),
			SizeBytes:       max(it.FileSize, it.Size, 0),
			MIMEType:        strings.TrimSpace(it.MIMEType),
			PayloadRef:      firstNonEmpty(it.FileID, it.URL),
		})
	}
	return out
}

// HTTPSource implements [SourceClient] against a search proxy.
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client
	headers    *shared.RequestHeaders
}

// HTTPOption configures an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPSource) {
		if c != nil {
			h.httpClient = c
		}
	}
}

// WithHeaders sends the captured headers with every request.
func WithHeaders(headers *shared.RequestHeaders) HTTPOption {
	return func(h *HTTPSource) { h.headers = headers }
}

// NewHTTPSource creates a proxy client for baseURL.
func NewHTTPSource(baseURL string, opts ...HTTPOption) *HTTPSource {
	if baseURL == "" {
		baseURL = defaultProxyURL
	}
	h := &HTTPSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Query calls GET /api/search on the proxy.
func (h *HTTPSource) Query(ctx context.Context, sourceID, queryText string, timeout time.Duration) ([]models.RawResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	params := url.Values{}
	params.Set("q", queryText)
	params.Set("source", sourceID)

	var items []httpResult
	if err := h.doRequest(ctx, "/api/search?"+params.Encode(), &items); err != nil {
		return nil, err
	}
	return parseHTTPResults(items), nil
}

// Ping calls GET /health on the proxy.
func (h *HTTPSource) Ping(ctx context.Context, _ string) error {
	return h.doRequest(ctx, "/health", nil)
}

func (h *HTTPSource) doRequest(ctx context.Context, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %w", shared.ErrSourceTransport, err)
	}

	h.headers.Apply(req)
	req.Header.Set("Accept", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return shared.ClassifySourceError(err)
	}
	defer resp.Body.Close()

	if err := checkStatus("proxy", resp); err != nil {
		return err
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			if ctx.Err() != nil {
				return shared.ClassifySourceError(ctx.Err())
			}
			return fmt.Errorf("%w: failed to decode response: %w", shared.ErrMalformedCandidate, err)
		}
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
