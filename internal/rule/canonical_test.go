package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_FixedLayout(t *testing.T) {
	node := Group{Con: And, Children: []Node{
		Leaf{Field: Column("tagId"), Op: OpEq, Value: Number(5)},
		Leaf{Field: Property("good.weight"), Op: OpGt, Value: Number(10)},
	}}

	data, err := MarshalCanonical(node)
	require.NoError(t, err)
	assert.Equal(t,
		`{"con":"and","children":[{"field":"tagId","op":"eq","value":5},{"field":"$.good.weight","op":"gt","value":10}]}`,
		string(data))
}

func TestMarshalCanonical_NFCNormalization(t *testing.T) {
	// U+00E9 (precomposed) vs U+0065 U+0301 (decomposed) - same filter.
	precomposed := Leaf{Field: Property("café"), Op: OpEq, Value: String("ole")}
	decomposed := Leaf{Field: Property("café"), Op: OpEq, Value: String("ole")}

	assert.True(t, Equal(precomposed, decomposed))

	hashA, err := Hash(precomposed)
	require.NoError(t, err)
	hashB, err := Hash(decomposed)
	require.NoError(t, err)
	assert.Equal(t, hashA, hashB)
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	node := Leaf{Field: Property("html"), Op: OpEq, Value: String("<b>&</b>")}
	data, err := MarshalCanonical(node)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"<b>&</b>"`)
}

func TestHash_DistinguishesDifferentFilters(t *testing.T) {
	a, err := Hash(Leaf{Field: Column("reserved"), Op: OpEq, Value: Bool(true)})
	require.NoError(t, err)
	b, err := Hash(Leaf{Field: Column("reserved"), Op: OpEq, Value: Bool(false)})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestUnmarshalCanonical_RoundTrip(t *testing.T) {
	original := Group{Con: Or, Children: []Node{
		Leaf{Field: Column("tagId"), Op: OpIn, Value: Array{Number(1), Number(2)}},
		Group{Con: Not, Children: []Node{
			Leaf{Field: Property("good.weight"), Op: OpBetween, Value: Array{Number(5), Number(10)}},
		}},
		Leaf{Field: Property("status"), Op: OpNotExists, Value: Null{}},
	}}

	data, err := MarshalCanonical(original)
	require.NoError(t, err)

	decoded, err := UnmarshalCanonical(data)
	require.NoError(t, err)
	assert.True(t, Equal(original, decoded))
}

func TestUnmarshalCanonical_RejectsBadPayloads(t *testing.T) {
	testCases := []struct {
		name string
		data string
	}{
		{"not json", "{"},
		{"unknown connective", `{"con":"xor","children":[{"field":"tagId","op":"eq","value":1}]}`},
		{"empty group", `{"con":"and","children":[]}`},
		{"unknown operator", `{"field":"tagId","op":"resembles","value":1}`},
		{"missing field", `{"op":"eq","value":1}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := UnmarshalCanonical([]byte(tc.data))
			require.Error(t, err)
			assert.True(t, IsMalformed(err))
		})
	}
}
