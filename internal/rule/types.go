package rule

import "strings"

// Node is the canonical predicate AST produced by all three decoders.
//
// This is a sealed interface - only Leaf and Group implement it. The marker
// method pattern keeps type switches in the compiler exhaustive and prevents
// external packages from smuggling in nodes the compiler cannot handle.
type Node interface {
	ruleNode() // Marker method - seals interface to this package
}

// Connective joins the children of a Group.
type Connective string

const (
	And Connective = "and"
	Or  Connective = "or"
	Not Connective = "not"
)

// FieldRef addresses either a declared relational column (by its wire name,
// e.g. "tagId") or a dotted path into the record's JSON properties
// (e.g. "good.weight"). Which columns exist is the compiler's knowledge;
// the parser only distinguishes the two address spaces.
type FieldRef struct {
	// Property is true when Path addresses the JSON properties blob.
	Property bool
	// Path is the column wire name, or the dotted property path without
	// any encoding prefix ("$." and "prop.$" are stripped by decoders).
	Path string
}

// Column returns a FieldRef addressing a relational column.
func Column(name string) FieldRef {
	return FieldRef{Property: false, Path: name}
}

// Property returns a FieldRef addressing a dotted JSON property path.
func Property(path string) FieldRef {
	return FieldRef{Property: true, Path: path}
}

// String renders the reference in server-rules notation, the form used in
// error messages and canonical encodings.
func (f FieldRef) String() string {
	if f.Property {
		return "$." + f.Path
	}
	return f.Path
}

// Leaf is a single predicate: field <op> value.
type Leaf struct {
	Field FieldRef
	Op    Op
	// Value is the comparison literal. Operators that take no operand
	// (isnull, notnull, exists, notexists) carry Null{}.
	Value Value
}

func (Leaf) ruleNode() {}

// Group combines child predicates with a boolean connective.
//
// Invariants (enforced at decode time):
//   - at least one child
//   - a Not group has exactly one child
type Group struct {
	Con      Connective
	Children []Node
}

func (Group) ruleNode() {}

// parsePropertyPath validates and splits a dotted property path.
// Empty segments ("a..b", trailing dot) are malformed.
func parsePropertyPath(path string) ([]string, bool) {
	if path == "" {
		return nil, false
	}
	segs := strings.Split(path, ".")
	for _, s := range segs {
		if s == "" {
			return nil, false
		}
	}
	return segs, true
}
