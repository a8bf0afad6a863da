// Package store provides durable SQLite storage for buckets of tagged JSON
// records, plus the reservation coordinator and saved filter persistence.
//
// The store executes condition fragments compiled by internal/rulesql; it
// never builds WHERE text from caller input itself. All record-set
// operations (count, select, update, delete, reserve) run against the same
// compiled fragment, so the counted set, the paged union, and the mutated
// set are always the same set of rows.
//
// Reservation claims run in a single immediate transaction: SQLite admits
// one writer at a time, so two concurrent claims cannot interleave between
// the id selection and the reserved-flag update. Concurrent claims over
// overlapping predicates therefore receive disjoint id sets by
// construction.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - _txlock=immediate: BeginTx takes the write lock up front, so a
//     reservation transaction never upgrades mid-flight
package store
