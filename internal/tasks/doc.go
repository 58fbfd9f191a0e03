// Package tasks runs download jobs: it resolves a catalog reference, lists its tracks and turns each one
// into a tagged audio file on disk, reporting progress as it goes.
//
// # Jobs
//
// [Orchestrator.Submit] registers a job and returns its id immediately. The job then runs in its own
// goroutine under a context detached from the submitter:
//
//  1. Resolve the reference (share link or bare id) against the catalog
//  2. Fetch item info and the track list concurrently
//  3. Derive the job folder from the item kind (see [FolderName])
//  4. Hand the tracks to the [Engine]
//
// Every failure, including a panic, ends the job as [StatusFailed] with a final error event.
// Jobs share nothing except the download root and the [ledger.Ledger] they write to.
//
// # Engine
//
// [Engine.Run] creates the job folder, verifies it is writable and then processes tracks strictly in
// order. For each track it:
//   - skips the retrieval when "<artist> - <title>.mp3" already exists
//   - retrieves the best audio match for "<title> <artist> <qualifier>"
//   - tags the result (text frames, then cover art)
//
// A failure on one track is reported and never stops the remaining tracks. A failed cover download
// is a warning and leaves the file counted as downloaded.
//
// # Progress Reporting
//
// Progress is a list of [ledger.Event] values per job, appended in order and mirrored to the logger.
// Terminal outcomes can additionally be persisted through a [Recorder] and job snapshots through a
// [JobHistory] (both implemented by the repositories package).
package tasks
