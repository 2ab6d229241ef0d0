// Package store provides SQLite-backed build history for p4ir.
//
// Every successful build of a program is recorded as an append-only row:
//   - Builds: one row per build (id, seq, program, fingerprint, canonical snapshot)
//   - Declarations: the declaration catalogue of that build, in declaration order
//
// # Ordering
//
// All ordering uses seq INTEGER (a logical counter assigned inside the insert
// transaction), never timestamps. Queries use ORDER BY seq ASC, id ASC COLLATE
// BINARY so repeated reads of the same database agree.
//
// # Identity
//
// Build ids come from an IDGenerator: UUIDv7 in production, deterministic
// generators in tests. Fingerprints are computed by internal/ir over the canonical
// JSON of the resolved package.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
