// Package tasks runs aggregate track searches across every configured source with real-time progress reporting.
//
// # Core Operations
//
// [Searcher] is the public entry point:
//
//  1. [Searcher.Search] : payload ref of the best match, or not found
//     - Checks the archive of previously delivered results
//     - Checks the short-lived query cache
//     - Fans the query out through the [Coordinator]
//     - Writes the winner back to the cache and the archive
//
//  2. [Searcher.SearchDetailed] : same search, reporting the candidate, the answering tier, and the elapsed time
//
//  3. [Searcher.ClearCache], [Searcher.ClearArchive], [Searcher.CacheStats] : store maintenance
//
// # Fan-out
//
// [Coordinator.Run] dispatches one task per selected source (preferred tier first, capped at the
// parallelism limit), all started at once. Each task tries the query variants in order under its
// own timeout. Outcomes are read in completion order:
//   - a candidate at or above the strong-match threshold settles the search and cancels the rest
//   - otherwise outcomes are collected until every task reports or the slow-path budget runs out
//   - the fast-path window only marks the moment the search stops expecting an early answer
//
// Late outcomes land in a buffered channel that is never read again, so abandoned tasks never block.
//
// # Serialization
//
// In the global lock mode one aggregate search runs at a time and callers queue in arrival order.
// In the per-query mode identical normalized queries share a single fan-out via singleflight and
// unrelated queries run concurrently.
//
// # Progress Reporting
//
// # All operations use non-blocking channels for progress updates
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
package tasks
