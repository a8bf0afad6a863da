package rule

import (
	"encoding/json"
	"strings"
)

// UnmarshalCanonical decodes the canonical JSON form produced by
// MarshalCanonical back into an AST. Saved filters persist their criteria
// in this form, so the decoder validates as strictly as the wire decoders:
// unknown operators, empty groups, and malformed field paths are rejected.
func UnmarshalCanonical(data []byte) (Node, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, malformed("invalid canonical filter: %v", err)
	}
	return unmarshalCanonicalNode(raw)
}

func unmarshalCanonicalNode(raw map[string]json.RawMessage) (Node, error) {
	if _, isGroup := raw["con"]; isGroup {
		return unmarshalCanonicalGroup(raw)
	}
	return unmarshalCanonicalLeaf(raw)
}

func unmarshalCanonicalGroup(raw map[string]json.RawMessage) (Node, error) {
	var con string
	if err := json.Unmarshal(raw["con"], &con); err != nil {
		return nil, malformed("group connective: %v", err)
	}
	switch Connective(con) {
	case And, Or, Not:
	default:
		return nil, malformed("unknown connective %q", con)
	}

	var children []map[string]json.RawMessage
	if err := json.Unmarshal(raw["children"], &children); err != nil {
		return nil, malformed("group children: %v", err)
	}
	if len(children) == 0 {
		return nil, malformed("%q group has zero children", con)
	}
	if Connective(con) == Not && len(children) != 1 {
		return nil, malformed("\"not\" group requires exactly one child")
	}

	nodes := make([]Node, 0, len(children))
	for _, childRaw := range children {
		child, err := unmarshalCanonicalNode(childRaw)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, child)
	}
	return Group{Con: Connective(con), Children: nodes}, nil
}

func unmarshalCanonicalLeaf(raw map[string]json.RawMessage) (Node, error) {
	var fieldName, opName string
	if err := json.Unmarshal(raw["field"], &fieldName); err != nil {
		return nil, malformed("leaf has no field path")
	}
	if err := json.Unmarshal(raw["op"], &opName); err != nil {
		return nil, malformed("leaf operator: %v", err)
	}
	op, ok := LookupOp(opName)
	if !ok {
		return nil, malformed("unknown operator %q", opName)
	}

	var field FieldRef
	if strings.HasPrefix(fieldName, "$.") {
		path := strings.TrimPrefix(fieldName, "$.")
		if _, ok := parsePropertyPath(path); !ok {
			return nil, malformed("invalid property path %q", fieldName)
		}
		field = Property(path)
	} else {
		if fieldName == "" {
			return nil, malformed("leaf has no field path")
		}
		field = Column(fieldName)
	}

	if takesNoValue(op) {
		return Leaf{Field: field, Op: op, Value: Null{}}, nil
	}

	var rawVal any
	if err := json.Unmarshal(raw["value"], &rawVal); err != nil {
		return nil, malformed("leaf value: %v", err)
	}
	val, err := ToValue(rawVal)
	if err != nil {
		return nil, malformed("leaf value: %v", err)
	}
	return normalizeLeaf(field, op, val)
}
