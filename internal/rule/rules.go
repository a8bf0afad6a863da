package rule

import "strings"

// DecodeRules normalizes the server-authored rules encoding into the
// canonical AST. Groups are single-key maps ("and"/"or"/"not") holding a
// list of child nodes; a leaf maps a field path to either a bare literal
// (equality) or an [operator, value] pair. Property references use the
// "$.group.item" notation.
func DecodeRules(rules map[string]any) (Node, error) {
	return decodeRulesNode(rules)
}

// decodeRulesNode decodes one node map. A map with a single "and"/"or"/"not"
// key is a group; any other single-key map is a leaf. Multi-key maps are
// ambiguous between the two readings and rejected.
func decodeRulesNode(m map[string]any) (Node, error) {
	if len(m) != 1 {
		return nil, malformed("rules node must have exactly one key, got %d", len(m))
	}

	var key string
	var raw any
	for k, v := range m {
		key, raw = k, v
	}

	switch key {
	case "and", "or", "not":
		return decodeRulesGroup(key, raw)
	default:
		return decodeRulesLeaf(key, raw)
	}
}

// decodeRulesGroup decodes an "and"/"or"/"not" group node.
func decodeRulesGroup(key string, raw any) (Node, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, malformed("%q group requires a list of children", key)
	}
	if len(list) == 0 {
		return nil, malformed("%q group has zero children", key)
	}
	if key == "not" && len(list) != 1 {
		return nil, malformed("\"not\" group requires exactly one child")
	}

	children := make([]Node, 0, len(list))
	for i, childRaw := range list {
		childMap, ok := childRaw.(map[string]any)
		if !ok {
			return nil, malformed("%q group child %d is not a rules node", key, i)
		}
		child, err := decodeRulesNode(childMap)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	switch key {
	case "not":
		return Group{Con: Not, Children: children}, nil
	case "or":
		if len(children) == 1 {
			return children[0], nil
		}
		return Group{Con: Or, Children: children}, nil
	default:
		if len(children) == 1 {
			return children[0], nil
		}
		return Group{Con: And, Children: children}, nil
	}
}

// decodeRulesLeaf decodes {path: literal} or {path: [op, value]}.
func decodeRulesLeaf(key string, raw any) (Node, error) {
	field, err := decodeRulesField(key)
	if err != nil {
		return nil, err
	}

	// [op, value] pair - but only when the first element names an operator;
	// otherwise the list is an equality test against an array, which is
	// rejected by normalizeLeaf like any other scalar/array mismatch.
	if pair, ok := raw.([]any); ok && len(pair) == 2 {
		if opName, isStr := pair[0].(string); isStr {
			if op, known := LookupOp(opName); known {
				if takesNoValue(op) {
					return Leaf{Field: field, Op: op, Value: Null{}}, nil
				}
				val, err := ToValue(pair[1])
				if err != nil {
					return nil, malformed("field %q: %v", key, err)
				}
				return normalizeLeaf(field, op, val)
			}
			return nil, malformed("unknown operator %q", opName)
		}
	}

	// Bare [op] form for operand-less operators: {path: ["isnull"]}.
	if pair, ok := raw.([]any); ok && len(pair) == 1 {
		if opName, isStr := pair[0].(string); isStr {
			op, known := LookupOp(opName)
			if !known {
				return nil, malformed("unknown operator %q", opName)
			}
			if !takesNoValue(op) {
				return nil, malformed("operator %q requires a value", opName)
			}
			return Leaf{Field: field, Op: op, Value: Null{}}, nil
		}
	}

	val, err := ToValue(raw)
	if err != nil {
		return nil, malformed("field %q: %v", key, err)
	}
	return normalizeLeaf(field, OpEq, val)
}

// decodeRulesField resolves a rules field key: "$." prefixed keys address
// the JSON properties blob, everything else is a relational column name.
func decodeRulesField(key string) (FieldRef, error) {
	if key == "" {
		return FieldRef{}, malformed("leaf has no field path")
	}
	if strings.HasPrefix(key, "$.") {
		path := strings.TrimPrefix(key, "$.")
		if _, ok := parsePropertyPath(path); !ok {
			return FieldRef{}, malformed("invalid property path %q", key)
		}
		return Property(path), nil
	}
	return Column(key), nil
}
