// Package store provides SQLite-backed storage for package snapshots and
// recorded engine runs.
//
// The store holds three tables:
//   - packages: content-addressed package documents (ir.PackageID)
//   - runs: one row per recorded run of a package
//   - samples: external socket values per tick of a run
//
// # Ordering
//
// Nothing is ordered by wall-clock time. Packages and runs carry a seq
// assigned on insert; samples are keyed by (run, tick, direction, socket).
// Every query includes an explicit ORDER BY, so reads are identical
// across processes and replays.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Documents and values are stored as canonical JSON produced by
// ir.MarshalCanonical.
package store
