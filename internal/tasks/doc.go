// Package tasks runs batches of independent jobs on a bounded worker pool.
//
// [Run] fans jobs out to a fixed number of workers, optionally paced by a rate limiter,
// and collects one [Result] per job in input order. A failed job is recorded in its
// result and never aborts the batch; only context cancellation does.
//
// # Progress Reporting
//
// Callers may pass a channel in [Opts.Progress]. Each finished job produces a
// [ProgressUpdate] with the phase, step counters and a message. Updates are sent with
// select and default, so a slow or absent reader drops updates instead of stalling
// the workers.
package tasks
