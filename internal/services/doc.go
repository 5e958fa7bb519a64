// Package services defines the [SourceClient] interface for music search providers and implements it
// for HTTP search proxies and Spotify.
//
// # SourceClient Interface
//
// Every provider answers one question: given a source ID and a query string, which audio results
// do you have? Implementations must honour the timeout they are given and the context they run
// under; the fan-out coordinator cancels them once a search settles.
//
// # HTTP Proxy Implementation
//
// [HTTPSource] talks to a JSON search proxy that fronts several upstream providers. The source ID
// is sent as the source query parameter. Optional headers captured from a browser request
// ([shared.RequestHeaders]) are attached to every call.
//
// # Spotify Implementation
//
// [SpotifySource] authenticates with the OAuth2 client credentials grant. The token source caches
// and refreshes the token, so a single SpotifySource can be shared by every search.
//
// # Error Handling
//
// Clients return errors from the shared source taxonomy:
//   - [shared.ErrSourceTimeout] : the timeout or the parent context expired
//   - [shared.ErrSourceTransport] : connection failure or non-2xx status
//   - [shared.ErrMalformedCandidate] : payload could not be decoded
//
// # Registry
//
// [Registry] maps source IDs to clients and is what the coordinator holds. [SelectSources] orders
// handles preferred tier first and caps them at the parallelism limit.
package services
