// Package server exposes the search core over HTTP.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method-qualified patterns.
//
// # Routes
//
//	GET    /search?q=...&format=json|text|markdown → best match, or found=false
//	GET    /search/stream?q=...                    → server-sent progress events, then the result
//	GET    /cache/stats                            → entries, TTL, enabled
//	DELETE /cache                                  → clear the query cache
//	POST   /cache/compact                          → drop expired cache and archive entries, persisted rows included
//	DELETE /archive                                → clear the archive, persisted rows included
//	GET    /health                                 → service status plus a ping per source
//
// # Middleware
//
//   - [RequestID] tags requests with a uuid
//   - [Logging] writes one structured line per request
//   - [Cooldown] answers 429 while a caller is inside the per-user cool-down; callers are
//     identified by the X-User-ID header, falling back to the remote host
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
