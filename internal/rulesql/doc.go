// Package rulesql compiles canonical rule ASTs (internal/rule) into
// parameterized SQL fragments and assembles the four statement shapes the
// data service executes: count, paged select, bulk update, and bulk delete.
//
// # Invariants
//
// All four statements are assembled from the same compiled fragment, so for
// a fixed snapshot the set of rows counted, selected, updated, and deleted
// by one AST is always identical. The sort field of a paged select resolves
// through the same field resolver as predicate leaves - "what would be
// selected" and "what would be deleted" share one semantics.
//
// Values are always bound parameters, never interpolated into SQL text.
//
// The mandatory scope constraint (project, bucket, and optionally tag) is
// injected by Compile as the outermost conjunction. Scope columns are not
// part of the caller-addressable column registry, and property paths compile
// exclusively to json_extract over the properties blob, so no caller-supplied
// field path can shadow or override the scope - this is the multi-tenancy
// enforcement point.
//
// # Field resolution
//
// A leaf's field path resolves either to a declared relational column
// (typed comparison against the column) or to a dotted path into the JSON
// properties blob (json_extract with a CAST whose target is inferred from
// the literal's type). Anything else is an UnknownField error.
package rulesql
