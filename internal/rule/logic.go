package rule

import "strings"

// logicPropPrefix marks a property reference in query-builder output.
// "prop.$good*weight" addresses properties path good.weight; the '*'
// separator avoids clashing with the '.' the builder uses internally.
const logicPropPrefix = "prop.$"

// DecodeLogic normalizes the frontend query-builder logic tree (a
// JsonLogic-shaped nested map) into the canonical AST.
func DecodeLogic(logic map[string]any) (Node, error) {
	node, err := decodeLogicNode(logic)
	if err != nil {
		return nil, err
	}
	return node, nil
}

// decodeLogicNode decodes one single-key logic map: either a group
// ("and"/"or"/"!") or an operator leaf.
func decodeLogicNode(m map[string]any) (Node, error) {
	if len(m) != 1 {
		return nil, malformed("logic node must have exactly one key, got %d", len(m))
	}

	var key string
	var raw any
	for k, v := range m {
		key, raw = k, v
	}

	switch key {
	case "and", "or":
		return decodeLogicGroup(key, raw)
	case "!":
		return decodeLogicNot(raw)
	case "!!":
		// Double negation of a bare reference is the builder's existence test.
		ref, ok := raw.(map[string]any)
		if !ok {
			return nil, malformed("!! requires a var reference")
		}
		field, err := decodeLogicVar(ref)
		if err != nil {
			return nil, err
		}
		return Leaf{Field: field, Op: OpExists, Value: Null{}}, nil
	default:
		return decodeLogicLeaf(key, raw)
	}
}

// decodeLogicGroup decodes an "and"/"or" node whose value is a list of
// child nodes.
func decodeLogicGroup(key string, raw any) (Node, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, malformed("%q group requires a list of children", key)
	}
	if len(list) == 0 {
		return nil, malformed("%q group has zero children", key)
	}

	children := make([]Node, 0, len(list))
	for i, childRaw := range list {
		childMap, ok := childRaw.(map[string]any)
		if !ok {
			return nil, malformed("%q group child %d is not a logic node", key, i)
		}
		child, err := decodeLogicNode(childMap)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	con := And
	if key == "or" {
		con = Or
	}
	if len(children) == 1 {
		// A single-child group adds nothing; collapse it so equivalent
		// filters canonicalize identically across encodings.
		return children[0], nil
	}
	return Group{Con: con, Children: children}, nil
}

// decodeLogicNot decodes a "!" node. A negated bare reference is the
// builder's non-existence test; anything else becomes a NOT group.
func decodeLogicNot(raw any) (Node, error) {
	childMap, ok := raw.(map[string]any)
	if !ok {
		// The builder also emits {"!": [node]}.
		if list, isList := raw.([]any); isList && len(list) == 1 {
			childMap, ok = list[0].(map[string]any)
		}
		if !ok {
			return nil, malformed("! requires a single logic node")
		}
	}

	if _, isVar := childMap["var"]; isVar && len(childMap) == 1 {
		field, err := decodeLogicVar(childMap)
		if err != nil {
			return nil, err
		}
		return Leaf{Field: field, Op: OpNotExists, Value: Null{}}, nil
	}

	child, err := decodeLogicNode(childMap)
	if err != nil {
		return nil, err
	}
	return Group{Con: Not, Children: []Node{child}}, nil
}

// decodeLogicLeaf decodes an operator leaf such as
// {"==": [{"var": "tagId"}, 5]} or the three-argument between form
// {"<=": [5, {"var": "prop.$good*rating"}, 10]}.
func decodeLogicLeaf(key string, raw any) (Node, error) {
	args, ok := raw.([]any)
	if !ok {
		return nil, malformed("operator %q requires an argument list", key)
	}

	// Three-argument ordering is the builder's between encoding:
	// low <= var <= high.
	if (key == "<=" || key == "<") && len(args) == 3 {
		return decodeLogicBetween(args)
	}

	op, ok := LookupOp(key)
	if !ok {
		return nil, malformed("unknown operator %q", key)
	}
	if len(args) != 2 {
		return nil, malformed("operator %q requires two arguments", key)
	}

	ref, ok := args[0].(map[string]any)
	if !ok {
		return nil, malformed("operator %q: first argument must be a var reference", key)
	}
	field, err := decodeLogicVar(ref)
	if err != nil {
		return nil, err
	}

	val, err := ToValue(args[1])
	if err != nil {
		return nil, malformed("operator %q: %v", key, err)
	}

	// JsonLogic "in" doubles as substring test when the haystack is a string.
	if op == OpIn {
		if _, isStr := val.(String); isStr {
			op = OpLike
		}
	}
	return normalizeLeaf(field, op, val)
}

// decodeLogicBetween decodes [low, var, high] into a between leaf.
func decodeLogicBetween(args []any) (Node, error) {
	ref, ok := args[1].(map[string]any)
	if !ok {
		return nil, malformed("between: middle argument must be a var reference")
	}
	field, err := decodeLogicVar(ref)
	if err != nil {
		return nil, err
	}
	low, err := ToValue(args[0])
	if err != nil {
		return nil, malformed("between low bound: %v", err)
	}
	high, err := ToValue(args[2])
	if err != nil {
		return nil, malformed("between high bound: %v", err)
	}
	return normalizeLeaf(field, OpBetween, Array{low, high})
}

// decodeLogicVar resolves a {"var": name} reference. Names carrying the
// "prop.$" prefix address the JSON properties blob with '*' separating
// path segments; bare names address relational columns.
func decodeLogicVar(ref map[string]any) (FieldRef, error) {
	raw, ok := ref["var"]
	if !ok {
		return FieldRef{}, malformed("leaf has no field path")
	}
	name, ok := raw.(string)
	if !ok || name == "" {
		return FieldRef{}, malformed("leaf has no field path")
	}

	if strings.HasPrefix(name, logicPropPrefix) {
		path := strings.ReplaceAll(strings.TrimPrefix(name, logicPropPrefix), "*", ".")
		if _, ok := parsePropertyPath(path); !ok {
			return FieldRef{}, malformed("invalid property path %q", name)
		}
		return Property(path), nil
	}
	return Column(name), nil
}
