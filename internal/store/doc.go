// Package store provides SQLite-backed audit storage for adl.
//
// The store is an append-only log of:
//   - Conversions: input and output payloads of one engine run, with hashes
//   - Conversion errors: the soft errors a run recorded, in order
//   - Conformance runs: which API and rule group was checked
//   - Conformance errors: the findings of a run, in order
//
// # Patterns
//
// Logical time:
//   - All ordering uses seq INTEGER assigned on insert, NEVER timestamps
//   - Queries order by seq ASC, id ASC COLLATE BINARY
//
// Content addressing:
//   - Conversion IDs come from ir.ConversionID over the run ID and input hash
//   - Payloads are stored as RFC 8785 canonical JSON, so a stored output hash
//     can be recomputed from the stored output
//
// Writes are idempotent: writing the same conversion twice is a no-op.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The engine never touches the store; the CLI records runs after the fact.
package store
