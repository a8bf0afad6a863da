package rulesql

import (
	"fmt"
	"strings"

	"github.com/amgator/databucket-app/internal/rule"
)

// columnType drives operator/literal compatibility checks for relational
// columns. Property values are schema-less, so their checks are driven by
// the literal instead.
type columnType int

const (
	typeNumeric columnType = iota
	typeText
	typeBool
	typeTime // ISO-8601 text, compared lexically
)

// column describes one caller-addressable relational column.
type column struct {
	sqlName string
	typ     columnType
}

// columnRegistry maps wire names to data table columns.
//
// project_id and bucket_id are deliberately absent: they are scope columns,
// injected by Compile and never caller-addressable. A filter naming them
// fails with UnknownField instead of silently widening or narrowing the
// tenant scope.
var columnRegistry = map[string]column{
	"id":         {sqlName: "data_id", typ: typeNumeric},
	"tagId":      {sqlName: "tag_id", typ: typeNumeric},
	"reserved":   {sqlName: "reserved", typ: typeBool},
	"owner":      {sqlName: "reserved_by", typ: typeText},
	"createdAt":  {sqlName: "created_at", typ: typeTime},
	"createdBy":  {sqlName: "created_by", typ: typeText},
	"modifiedAt": {sqlName: "modified_at", typ: typeTime},
	"modifiedBy": {sqlName: "modified_by", typ: typeText},
}

// resolved is the outcome of field resolution: either a relational column
// or a JSON property path.
type resolved struct {
	isProperty bool
	col        column // valid when !isProperty
	jsonPath   string // sqlite JSON1 path ("$.a.b"), valid when isProperty
}

// resolveField maps a FieldRef onto a column or a JSON path.
func resolveField(f rule.FieldRef) (resolved, error) {
	if f.Property {
		path, err := jsonPath(f.Path)
		if err != nil {
			return resolved{}, err
		}
		return resolved{isProperty: true, jsonPath: path}, nil
	}

	col, ok := columnRegistry[f.Path]
	if !ok {
		return resolved{}, unknownField(f.Path)
	}
	return resolved{col: col}, nil
}

// jsonPath converts a dotted property path into a sqlite JSON1 path literal.
// The path is embedded in SQL text (JSON1 paths cannot be bound), so the
// character set is restricted to keep injection impossible by construction.
func jsonPath(dotted string) (string, error) {
	if dotted == "" {
		return "", unknownField("$.")
	}
	for _, seg := range strings.Split(dotted, ".") {
		if seg == "" {
			return "", unknownField("$." + dotted)
		}
		for _, r := range seg {
			if !isPathRune(r) {
				return "", unknownField("$." + dotted)
			}
		}
	}
	return "$." + dotted, nil
}

func isPathRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '_' || r == '-':
		return true
	}
	return false
}

// propertyExpr renders the JSON extraction for a property path, cast to the
// comparison type inferred from the literal kind.
func propertyExpr(path string, kind rule.ValueKind) string {
	extract := fmt.Sprintf("json_extract(properties, '%s')", path)
	switch kind {
	case rule.KindNumber:
		return fmt.Sprintf("CAST(%s AS REAL)", extract)
	case rule.KindString:
		return fmt.Sprintf("CAST(%s AS TEXT)", extract)
	default:
		// booleans extract as 0/1, no cast needed
		return extract
	}
}

// propertyTypeExpr renders the json_type probe used by null and existence
// checks on a property path.
func propertyTypeExpr(path string) string {
	return fmt.Sprintf("json_type(properties, '%s')", path)
}
