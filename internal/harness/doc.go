// Package harness runs yaml-defined scenarios against a fresh store.
//
// A scenario seeds a bucket with records, executes a sequence of data
// operations (get, create, modify, delete, reserve), checks each step's
// expectation, and finally evaluates assertions over the end state. Every
// run uses an in-memory database and a deterministic clock, so the same
// scenario always produces the same trace - which makes the trace suitable
// for golden file comparison.
//
// Claim tokens are the one non-deterministic output (they are UUIDv7,
// minted inside the store); traces therefore record which ids a
// reservation claimed, never the token.
package harness
