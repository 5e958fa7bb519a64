// Spotify Web API [SourceClient] implementation
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/search
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/desertthunder/tunex/internal/models"
	"github.com/desertthunder/tunex/internal/shared"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// Spotify streams are Ogg Vorbis.
	spotifyMIMEType = "audio/ogg"
	spotifyLimit    = 10
)

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	Popularity int             `json:"popularity"`
	URI        string          `json:"uri"`
}

type spotifySearchResponse struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
		Total int            `json:"total"`
	} `json:"tracks"`
}

// parseSpotifyTracks maps search items to raw results. The track URI is the payload ref.
func parseSpotifyTracks(items []SpotifyTrack) []models.RawResult {
	out := make([]models.RawResult, 0, len(items))
	for _, t := range items {
		names := make([]string, 0, len(t.Artists))
		for _, a := range t.Artists {
			if a.Name != "" {
				names = append(names, a.Name)
			}
		}
		out = append(out, models.RawResult{
			Title:           t.Name,
			Performer:       strings.Join(names, ", "),
			DurationSeconds: t.DurationMS / 1000,
			MIMEType:        spotifyMIMEType,
			PayloadRef:      t.URI,
		})
	}
	return out
}

// SpotifySource implements [SourceClient] using the Spotify search endpoint.
//
// Authenticates with the OAuth2 client credentials grant; the token is cached and
// refreshed by the [clientcredentials] token source.
type SpotifySource struct {
	baseURL    string
	market     string
	httpClient *http.Client
}

// SpotifyOption configures a SpotifySource.
type SpotifyOption func(*spotifyOptions)

type spotifyOptions struct {
	baseURL  string
	tokenURL string
}

// WithSpotifyEndpoints overrides the API and token URLs, for tests.
func WithSpotifyEndpoints(baseURL, tokenURL string) SpotifyOption {
	return func(o *spotifyOptions) {
		o.baseURL = baseURL
		o.tokenURL = tokenURL
	}
}

// NewSpotifySource creates a Spotify source from client credentials.
func NewSpotifySource(creds shared.SpotifyConfig, opts ...SpotifyOption) (*SpotifySource, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret", shared.ErrMissingCredentials)
	}

	o := spotifyOptions{baseURL: spotifyBaseURL, tokenURL: spotifyTokenURL}
	for _, opt := range opts {
		opt(&o)
	}

	cc := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     o.tokenURL,
	}

	return &SpotifySource{
		baseURL:    strings.TrimRight(o.baseURL, "/"),
		market:     creds.Market,
		httpClient: cc.Client(context.Background()),
	}, nil
}

// Query calls GET /search?type=track.
func (s *SpotifySource) Query(ctx context.Context, _ string, queryText string, timeout time.Duration) ([]models.RawResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	params := url.Values{}
	params.Set("q", queryText)
	params.Set("type", "track")
	params.Set("limit", fmt.Sprint(spotifyLimit))
	if s.market != "" {
		params.Set("market", s.market)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", shared.ErrSourceTransport, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, shared.ClassifySourceError(err)
	}
	defer resp.Body.Close()

	if err := checkStatus("spotify", resp); err != nil {
		return nil, err
	}

	var body spotifySearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: failed to decode spotify response: %w", shared.ErrMalformedCandidate, err)
	}
	return parseSpotifyTracks(body.Tracks.Items), nil
}
