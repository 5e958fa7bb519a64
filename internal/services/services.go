// package services defines interface SourceClient for querying track providers over HTTP
//
// HTTP search proxies, Spotify
package services

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tunex/internal/models"
	"github.com/desertthunder/tunex/internal/shared"
)

// SourceClient runs one query against one provider.
type SourceClient interface {
	// Query searches sourceID for queryText and must return within timeout.
	// An empty result with a nil error means the provider had nothing.
	Query(ctx context.Context, sourceID, queryText string, timeout time.Duration) ([]models.RawResult, error)
}

// Pinger is implemented by clients that can check provider reachability.
type Pinger interface {
	Ping(ctx context.Context, sourceID string) error
}

// Registry maps source IDs to clients and is itself a [SourceClient].
type Registry struct {
	handles []models.SourceHandle
	clients map[string]SourceClient
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]SourceClient)}
}

// Register adds a source. Registering an ID twice replaces the client and keeps the original position.
func (r *Registry) Register(h models.SourceHandle, c SourceClient) {
	if _, exists := r.clients[h.ID]; !exists {
		r.handles = append(r.handles, h)
	}
	r.clients[h.ID] = c
}

// Handles returns the registered sources in registration order.
func (r *Registry) Handles() []models.SourceHandle {
	return append([]models.SourceHandle(nil), r.handles...)
}

// Query dispatches to the client registered for sourceID.
func (r *Registry) Query(ctx context.Context, sourceID, queryText string, timeout time.Duration) ([]models.RawResult, error) {
	c, ok := r.clients[sourceID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrUnknownSource, sourceID)
	}
	return c.Query(ctx, sourceID, queryText, timeout)
}

// Ping checks one source when its client supports it.
func (r *Registry) Ping(ctx context.Context, sourceID string) error {
	c, ok := r.clients[sourceID]
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrUnknownSource, sourceID)
	}
	p, ok := c.(Pinger)
	if !ok {
		return fmt.Errorf("%w: ping for %s", shared.ErrNotImplemented, sourceID)
	}
	return p.Ping(ctx, sourceID)
}

// SelectSources orders handles preferred tier first, keeping configuration order
// within a tier, and keeps at most limit of them.
func SelectSources(handles []models.SourceHandle, limit int) []models.SourceHandle {
	out := append([]models.SourceHandle(nil), handles...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Tier == models.TierPreferred && out[j].Tier != models.TierPreferred
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// NewRegistryFromConfig builds clients for every configured source.
//
// HTTP sources sharing a base URL and headers file share one client.
func NewRegistryFromConfig(cfg *shared.Config, logger *log.Logger) (*Registry, error) {
	reg := NewRegistry()
	httpClients := make(map[string]*HTTPSource)
	var spotify *SpotifySource

	for _, src := range cfg.Sources {
		handle := models.SourceHandle{ID: src.ID, Tier: models.ParseTier(src.Tier)}

		switch src.Kind {
		case shared.SourceKindHTTP:
			key := src.BaseURL + "|" + src.HeadersPath
			client, ok := httpClients[key]
			if !ok {
				var headers *shared.RequestHeaders
				if src.HeadersPath != "" {
					h, err := shared.LoadRequestHeaders(src.HeadersPath)
					if err != nil {
						return nil, fmt.Errorf("source %s: %w", src.ID, err)
					}
					headers = h
				}
				client = NewHTTPSource(src.BaseURL, WithHeaders(headers))
				httpClients[key] = client
			}
			reg.Register(handle, client)
		case shared.SourceKindSpotify:
			if spotify == nil {
				s, err := NewSpotifySource(cfg.Credentials.Spotify)
				if err != nil {
					logger.Warn("skipping spotify source", "id", src.ID, "err", err)
					continue
				}
				spotify = s
			}
			reg.Register(handle, spotify)
		default:
			return nil, fmt.Errorf("%w: source %s has unknown kind %q", shared.ErrInvalidConfig, src.ID, src.Kind)
		}
	}

	return reg, nil
}

// checkStatus turns a non-2xx response into a transport error.
func checkStatus(provider string, resp *http.Response) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s returned status %d", shared.ErrSourceTransport, provider, resp.StatusCode)
	}
	return nil
}
