// Package repositories implements SQLite persistence for download history.
//
// History is optional: the downloader works the same without it, and nothing is ever read back to make
// download decisions (the file system alone decides whether a track is already present).
//
// Key Implementations:
//   - [JobRepository] : One row per submitted job with its resolved item and final status
//   - [AcquisitionRepository] : One row per track outcome, unique per job and position
//   - [History] : Adapts both to the tasks package's JobHistory and Recorder interfaces
//
// Sequence numbers provide stable, human-readable ordering (e.g., job #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
