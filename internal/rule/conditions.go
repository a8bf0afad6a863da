package rule

import "strings"

// Legacy condition map keys. The old API modeled every predicate as a
// left/operation/right triple where the right side was always a constant.
const (
	condLeftSource  = "leftSource"
	condLeftValue   = "leftValue"
	condOperation   = "operation"
	condRightSource = "rightSource"
	condRightValue  = "rightValue"

	sourceField    = "field"
	sourceProperty = "property"
	sourceConst    = "const"
)

// DecodeConditions normalizes the legacy conditions list into the canonical
// AST. The list is an implicit conjunction: one condition yields its leaf
// directly, several are wrapped in an AND group.
func DecodeConditions(conditions []map[string]any) (Node, error) {
	if len(conditions) == 0 {
		return nil, malformed("conditions list has no entries")
	}

	children := make([]Node, 0, len(conditions))
	for i, cond := range conditions {
		leaf, err := decodeCondition(cond)
		if err != nil {
			return nil, malformed("conditions[%d]: %v", i, err)
		}
		children = append(children, leaf)
	}

	if len(children) == 1 {
		return children[0], nil
	}
	return Group{Con: And, Children: children}, nil
}

// decodeCondition decodes one flat condition map into a Leaf.
func decodeCondition(cond map[string]any) (Node, error) {
	opName, ok := cond[condOperation].(string)
	if !ok || opName == "" {
		return nil, malformed("missing operation")
	}
	op, ok := LookupOp(opName)
	if !ok {
		return nil, malformed("unknown operator %q", opName)
	}

	field, err := decodeConditionField(cond)
	if err != nil {
		return nil, err
	}

	if takesNoValue(op) {
		return Leaf{Field: field, Op: op, Value: Null{}}, nil
	}

	if src, present := cond[condRightSource]; present {
		if s, ok := src.(string); !ok || s != sourceConst {
			return nil, malformed("unsupported right source %v", src)
		}
	}
	val, err := ToValue(cond[condRightValue])
	if err != nil {
		return nil, malformed("right value: %v", err)
	}
	return normalizeLeaf(field, op, val)
}

// decodeConditionField resolves the left side of a condition into a FieldRef.
// leftSource=property addresses the JSON blob and the leftValue carries the
// "$." JSONPath prefix; leftSource=field addresses a relational column.
func decodeConditionField(cond map[string]any) (FieldRef, error) {
	src, ok := cond[condLeftSource].(string)
	if !ok || src == "" {
		return FieldRef{}, malformed("missing left source")
	}
	name, ok := cond[condLeftValue].(string)
	if !ok || name == "" {
		return FieldRef{}, malformed("leaf has no field path")
	}

	switch src {
	case sourceField:
		return Column(name), nil
	case sourceProperty:
		path := strings.TrimPrefix(name, "$.")
		if _, ok := parsePropertyPath(path); !ok {
			return FieldRef{}, malformed("invalid property path %q", name)
		}
		return Property(path), nil
	default:
		return FieldRef{}, malformed("unknown left source %q", src)
	}
}

// normalizeLeaf applies the value-shape rules shared by all decoders:
// array operators require arrays of the right arity, scalar operators
// reject arrays, and "== null" style leaves become null checks.
func normalizeLeaf(field FieldRef, op Op, val Value) (Node, error) {
	// Comparing against null is expressible in every encoding; fold it into
	// the explicit null-check operators so the compiler sees one form.
	if Kind(val) == KindNull {
		switch op {
		case OpEq:
			return Leaf{Field: field, Op: OpIsNull, Value: Null{}}, nil
		case OpNeq:
			return Leaf{Field: field, Op: OpNotNull, Value: Null{}}, nil
		}
	}

	if wantsArray(op) {
		arr, ok := val.(Array)
		if !ok {
			return nil, malformed("operator %q requires an array value", op)
		}
		if len(arr) == 0 {
			return nil, malformed("operator %q requires a non-empty array", op)
		}
		if op == OpBetween && len(arr) != 2 {
			return nil, malformed("operator %q requires exactly two bounds", op)
		}
	} else if Kind(val) == KindArray {
		return nil, malformed("operator %q does not accept an array value", op)
	}

	return Leaf{Field: field, Op: op, Value: val}, nil
}
