// Package repositories implements SQLite persistence for the archive of delivered tracks.
//
// Key Implementations:
//   - [ArchiveRepository] : CRUD over archive_entries, unique per performer and title key
//   - [ArchivePersister] : Adapts the repository to the in-memory archive store
//
// Sequence numbers give rows a stable insertion order independent of UUIDs and timestamps.
// The [NextSequence] function atomically increments per-table counters in dedicated sequence tables.
package repositories
