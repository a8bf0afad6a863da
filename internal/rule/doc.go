// Package rule defines the canonical predicate AST for bucket data filters
// and the decoders that normalize the three supported wire encodings into it.
//
// # Wire Encodings
//
// Clients have historically sent filters in three shapes:
//
//  1. Legacy conditions: an ordered list of flat maps, one predicate each,
//     combined with an implicit AND. Property references use JSONPath
//     ("$.group.item") with leftSource="property".
//  2. Logic trees: the nested JsonLogic-style structure produced by the
//     frontend query builder. Property references are encoded as
//     "prop.$<group>*<item>".
//  3. Server rules: nested single-key maps ("and"/"or"/"not") authored in
//     code or stored as saved filters. Property references use "$.group.item".
//
// All three decode to the same canonical AST: semantically equivalent inputs
// produce byte-identical canonical encodings (see MarshalCanonical). This is
// a contract, not a convenience - downstream compilation, saved-filter
// deduplication, and the test suite all rely on it.
//
// Supplying more than one encoding in a single request is ambiguous and
// rejected with ErrCodeAmbiguous rather than resolved by precedence.
//
// The package is pure syntax-to-AST translation: no I/O, no scope injection,
// no SQL. Scope constraints are the compiler's responsibility (internal/rulesql).
package rule
