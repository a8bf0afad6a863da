package rule

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// Domain prefix for content-addressed filter identity. The version suffix
// enables future encoding migration without colliding with old hashes.
const domainFilter = "databucket/filter/v1"

// MarshalCanonical renders a canonical AST as deterministic JSON:
// fixed key order, NFC-normalized strings, no HTML escaping. Two filters
// are the same filter exactly when their canonical encodings are equal -
// this is what backs the wire-format equivalence guarantee and saved-filter
// deduplication.
//
// Layout:
//
//	leaf:  {"field":"$.good.weight","op":"gt","value":10}
//	group: {"con":"and","children":[...]}
func MarshalCanonical(n Node) ([]byte, error) {
	if n == nil {
		return nil, fmt.Errorf("cannot marshal nil rule node")
	}
	var buf bytes.Buffer
	if err := writeCanonicalNode(&buf, n); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Hash computes the content-addressed identity of a filter:
// SHA256(domain + 0x00 + canonical). The null separator prevents
// domain/payload boundary ambiguity.
func Hash(n Node) (string, error) {
	canonical, err := MarshalCanonical(n)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(domainFilter))
	h.Write([]byte{0x00})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Equal reports whether two ASTs have identical canonical encodings.
func Equal(a, b Node) bool {
	ca, errA := MarshalCanonical(a)
	cb, errB := MarshalCanonical(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ca, cb)
}

func writeCanonicalNode(buf *bytes.Buffer, n Node) error {
	switch node := n.(type) {
	case Leaf:
		return writeCanonicalLeaf(buf, node)
	case Group:
		return writeCanonicalGroup(buf, node)
	default:
		return fmt.Errorf("unknown rule node type %T", n)
	}
}

func writeCanonicalLeaf(buf *bytes.Buffer, leaf Leaf) error {
	buf.WriteString(`{"field":`)
	if err := writeCanonicalString(buf, leaf.Field.String()); err != nil {
		return err
	}
	buf.WriteString(`,"op":`)
	if err := writeCanonicalString(buf, string(leaf.Op)); err != nil {
		return err
	}
	buf.WriteString(`,"value":`)
	if err := writeCanonicalValue(buf, leaf.Value); err != nil {
		return err
	}
	buf.WriteByte('}')
	return nil
}

func writeCanonicalGroup(buf *bytes.Buffer, group Group) error {
	buf.WriteString(`{"con":`)
	if err := writeCanonicalString(buf, string(group.Con)); err != nil {
		return err
	}
	buf.WriteString(`,"children":[`)
	for i, child := range group.Children {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonicalNode(buf, child); err != nil {
			return err
		}
	}
	buf.WriteString(`]}`)
	return nil
}

func writeCanonicalValue(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case Null:
		buf.WriteString("null")
		return nil
	case String:
		return writeCanonicalString(buf, string(val))
	case Number:
		buf.WriteString(formatNumber(val))
		return nil
	case Bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case Array:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalValue(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	default:
		return fmt.Errorf("unknown value type %T", v)
	}
}

// writeCanonicalString writes a JSON string with NFC normalization applied
// at the serialization boundary and HTML escaping disabled, so visually
// identical filters hash identically regardless of the client's Unicode
// composition form.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	normalized := norm.NFC.String(s)

	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return err
	}
	out := tmp.Bytes()
	// json.Encoder adds a trailing newline, remove it.
	if len(out) > 0 && out[len(out)-1] == '\n' {
		out = out[:len(out)-1]
	}
	buf.Write(out)
	return nil
}
