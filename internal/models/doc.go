// Package models defines domain entities and persistence interfaces for the tunex track finder.
//
// The package contains two categories of types:
//
// 1. Value types flowing through a search
//   - [SearchQuery] : Raw query plus its normalized form and ordered variants
//   - [SourceHandle] : Provider identifier with a priority [Tier]
//   - [RawResult] : One unscored result exactly as a provider returned it
//   - [CandidateResult] : A scored, immutable candidate owned by whoever holds the copy
//   - [CacheEntry] / [ArchiveEntry] : Store-owned wrappers with insertion time and TTL
//   - [SourceOutcome] : Explicit success/failure record of one provider task
//
// 2. Persistent Entities: Database-backed models
//   - [ArchivedCandidate] : A delivered candidate persisted so the archive survives restarts
//
// Persistent entities implement the Model interface providing ID, timestamps and validation.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
