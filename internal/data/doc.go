// Package data implements the record operations exposed to callers:
// create, get, modify, delete, and reserve.
//
// Every operation addresses records either by explicit ids or by a rule
// tree; an id list is folded into the same predicate pipeline (an id
// membership leaf), so both paths go through the compiler and carry the
// mandatory tenant scope. The service owns the paging envelope, column
// projection, the caller identity rules for reservations, and cache
// invalidation; everything durable lives in internal/store.
package data
