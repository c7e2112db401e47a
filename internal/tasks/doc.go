// Package tasks reconciles remote playlists with a desired ranking while keeping remote mutation calls low.
//
// # Pipeline
//
// [ReconcileEngine.Reconcile] processes targets strictly in configuration order. For each target:
//
//  1. [ScheduleGate] : targets with a schedule window run only inside [start, end) in their timezone
//  2. [DesiredStateProvider] : the ranked list the playlist should contain
//  3. [RemoteListReader] : the current membership and the item handles needed for deletion
//  4. [Decide] : unordered-diff computes add/remove sets; ordered-rebuild replaces the playlist on any difference
//  5. [ChangeLimiter] : truncates unordered-diff changes to the configured caps, keeping the first N
//  6. [ChangeExecutor] : removals first, then insertions, each paced by a shared [Pacer]
//
// Every remote call goes through [RetryPolicy]. A fatal error or exhausted retries stop the run,
// and the partial [models.ExecutionResult] is returned together with a [*ReconcileError].
// Targets processed before the failure keep their changes.
//
// # Retry Classification
//
// Errors wrapping [shared.ErrTransientRemote] are retried and errors wrapping [shared.ErrPermanentRemote] are not.
// Opaque errors fall back to keyword matching on the message ("timeout", "429", "quota", ...).
//
// # Progress Reporting
//
// The [ProgressUpdate] struct carries the phase, target, step counters and a message.
// Updates use select with default so a slow consumer never blocks a run.
//
// # Dry Run
//
// With [RunOptions.DryRun] the engine reads state and builds the same plans as a live run, but sends no mutating calls.
// Inserted and Deleted then hold the planned counts.
package tasks
