package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mustCanonical marshals a node and fails the test on error.
func mustCanonical(t *testing.T, n Node) string {
	t.Helper()
	data, err := MarshalCanonical(n)
	require.NoError(t, err)
	return string(data)
}

func TestDecode_WireFormatEquivalence(t *testing.T) {
	// The same logical filter in all three encodings:
	// reserved == false AND $.status == "new"
	conditions := []map[string]any{
		{
			"leftSource": "field", "leftValue": "reserved",
			"operation":   "equal",
			"rightSource": "const", "rightValue": false,
		},
		{
			"leftSource": "property", "leftValue": "$.status",
			"operation":   "equal",
			"rightSource": "const", "rightValue": "new",
		},
	}
	logic := map[string]any{
		"and": []any{
			map[string]any{"==": []any{map[string]any{"var": "reserved"}, false}},
			map[string]any{"==": []any{map[string]any{"var": "prop.$status"}, "new"}},
		},
	}
	rules := map[string]any{
		"and": []any{
			map[string]any{"reserved": false},
			map[string]any{"$.status": "new"},
		},
	}

	fromConditions, err := DecodeConditions(conditions)
	require.NoError(t, err)
	fromLogic, err := DecodeLogic(logic)
	require.NoError(t, err)
	fromRules, err := DecodeRules(rules)
	require.NoError(t, err)

	want := mustCanonical(t, Group{Con: And, Children: []Node{
		Leaf{Field: Column("reserved"), Op: OpEq, Value: Bool(false)},
		Leaf{Field: Property("status"), Op: OpEq, Value: String("new")},
	}})

	assert.Equal(t, want, mustCanonical(t, fromConditions))
	assert.Equal(t, want, mustCanonical(t, fromLogic))
	assert.Equal(t, want, mustCanonical(t, fromRules))
}

func TestDecode_EquivalenceNestedGroups(t *testing.T) {
	// tagId in [1,2] OR NOT ($.good.weight between [5,10])
	logic := map[string]any{
		"or": []any{
			map[string]any{"in": []any{map[string]any{"var": "tagId"}, []any{1.0, 2.0}}},
			map[string]any{"!": map[string]any{
				"<=": []any{5.0, map[string]any{"var": "prop.$good*weight"}, 10.0},
			}},
		},
	}
	rules := map[string]any{
		"or": []any{
			map[string]any{"tagId": []any{"in", []any{1.0, 2.0}}},
			map[string]any{"not": []any{
				map[string]any{"$.good.weight": []any{"between", []any{5.0, 10.0}}},
			}},
		},
	}

	fromLogic, err := DecodeLogic(logic)
	require.NoError(t, err)
	fromRules, err := DecodeRules(rules)
	require.NoError(t, err)

	assert.True(t, Equal(fromLogic, fromRules),
		"logic=%s rules=%s", mustCanonical(t, fromLogic), mustCanonical(t, fromRules))
}

func TestDecodeConditions_SingleConditionIsLeaf(t *testing.T) {
	node, err := DecodeConditions([]map[string]any{
		{
			"leftSource": "field", "leftValue": "owner",
			"operation":   "is_not_null",
			"rightSource": "const",
		},
	})
	require.NoError(t, err)

	leaf, ok := node.(Leaf)
	require.True(t, ok, "single condition should decode to a bare leaf")
	assert.Equal(t, Column("owner"), leaf.Field)
	assert.Equal(t, OpNotNull, leaf.Op)
}

func TestDecodeConditions_LegacyOperatorAliases(t *testing.T) {
	testCases := []struct {
		alias string
		want  Op
	}{
		{"equal", OpEq},
		{"grater", OpGt}, // historical misspelling, still on the wire
		{"grater_equal", OpGte},
		{"less", OpLt},
		{"not_in", OpNotIn},
		{"similar", OpLike},
	}

	for _, tc := range testCases {
		t.Run(tc.alias, func(t *testing.T) {
			value := any("x")
			if tc.want == OpNotIn {
				value = []any{"x"}
			}
			node, err := DecodeConditions([]map[string]any{
				{
					"leftSource": "field", "leftValue": "owner",
					"operation":   tc.alias,
					"rightSource": "const", "rightValue": value,
				},
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, node.(Leaf).Op)
		})
	}
}

func TestDecode_NullComparisonNormalizesToNullCheck(t *testing.T) {
	fromRules, err := DecodeRules(map[string]any{"owner": nil})
	require.NoError(t, err)
	assert.Equal(t, OpIsNull, fromRules.(Leaf).Op)

	fromLogic, err := DecodeLogic(map[string]any{
		"!=": []any{map[string]any{"var": "owner"}, nil},
	})
	require.NoError(t, err)
	assert.Equal(t, OpNotNull, fromLogic.(Leaf).Op)
}

func TestDecodeLogic_InWithStringHaystackIsSubstring(t *testing.T) {
	node, err := DecodeLogic(map[string]any{
		"in": []any{map[string]any{"var": "prop.$name"}, "part"},
	})
	require.NoError(t, err)
	assert.Equal(t, OpLike, node.(Leaf).Op)
	assert.Equal(t, String("part"), node.(Leaf).Value)
}

func TestDecodeLogic_ExistenceChecks(t *testing.T) {
	exists, err := DecodeLogic(map[string]any{
		"!!": map[string]any{"var": "prop.$good*weight"},
	})
	require.NoError(t, err)
	assert.Equal(t, OpExists, exists.(Leaf).Op)
	assert.Equal(t, Property("good.weight"), exists.(Leaf).Field)

	missing, err := DecodeLogic(map[string]any{
		"!": map[string]any{"var": "prop.$good*weight"},
	})
	require.NoError(t, err)
	assert.Equal(t, OpNotExists, missing.(Leaf).Op)
}

func TestDecode_MalformedPayloads(t *testing.T) {
	testCases := []struct {
		name   string
		decode func() (Node, error)
	}{
		{
			name: "unknown operator",
			decode: func() (Node, error) {
				return DecodeRules(map[string]any{"tagId": []any{"resembles", 5.0}})
			},
		},
		{
			name: "leaf without field path",
			decode: func() (Node, error) {
				return DecodeConditions([]map[string]any{
					{"leftSource": "field", "operation": "equal", "rightValue": 1.0},
				})
			},
		},
		{
			name: "group with zero children",
			decode: func() (Node, error) {
				return DecodeLogic(map[string]any{"and": []any{}})
			},
		},
		{
			name: "empty conditions list",
			decode: func() (Node, error) {
				return DecodeConditions(nil)
			},
		},
		{
			name: "between with one bound",
			decode: func() (Node, error) {
				return DecodeRules(map[string]any{"$.good.weight": []any{"between", []any{5.0}}})
			},
		},
		{
			name: "scalar operator with array value",
			decode: func() (Node, error) {
				return DecodeRules(map[string]any{"tagId": []any{"gt", []any{1.0, 2.0}}})
			},
		},
		{
			name: "object literal",
			decode: func() (Node, error) {
				return DecodeRules(map[string]any{"tagId": map[string]any{"nested": 1.0}})
			},
		},
		{
			name: "empty property path segment",
			decode: func() (Node, error) {
				return DecodeRules(map[string]any{"$.good..weight": 1.0})
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.decode()
			require.Error(t, err)
			assert.True(t, IsMalformed(err), "expected MalformedRuleTree, got %v", err)
		})
	}
}

func TestDecode_AmbiguousEncodingRejected(t *testing.T) {
	_, err := Decode(Filter{
		Conditions: []map[string]any{
			{"leftSource": "field", "leftValue": "reserved", "operation": "equal", "rightValue": false},
		},
		Rules: map[string]any{"reserved": false},
	})
	require.Error(t, err)
	assert.True(t, IsAmbiguous(err))
}

func TestDecode_EmptyFilterMeansNoPredicate(t *testing.T) {
	node, err := Decode(Filter{})
	require.NoError(t, err)
	assert.Nil(t, node)
}
