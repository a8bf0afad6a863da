package rulesql

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amgator/databucket-app/internal/rule"
)

func compiledTestFragment(t *testing.T) Fragment {
	t.Helper()
	node := rule.Group{Con: rule.And, Children: []rule.Node{
		rule.Leaf{Field: rule.Property("good.status"), Op: rule.OpEq, Value: rule.String("new")},
		rule.Leaf{Field: rule.Column("tagId"), Op: rule.OpIn, Value: rule.Array{rule.Number(1), rule.Number(2)}},
	}}
	frag, err := Compile(node, testScope())
	require.NoError(t, err)
	return frag
}

// TestStatements_Golden pins the exact SQL text of all four statement shapes
// for one compiled fragment. The golden file makes accidental statement
// drift (which would break cross-statement set equality) visible in review.
func TestStatements_Golden(t *testing.T) {
	frag := compiledTestFragment(t)

	sel, err := Select(frag, ListOptions{Page: 2, Limit: 10, Sort: "-createdAt"})
	require.NoError(t, err)
	res, err := ReserveSelect(frag, 3, "")
	require.NoError(t, err)

	var b strings.Builder
	b.WriteString("-- count\n" + Count(frag).SQL + "\n")
	b.WriteString("-- select page=2 limit=10 sort=-createdAt\n" + sel.SQL + "\n")
	b.WriteString("-- delete\n" + Delete(frag).SQL + "\n")
	b.WriteString("-- reserve limit=3\n" + res.SQL + "\n")

	g := goldie.New(t)
	g.Assert(t, "statements", []byte(b.String()))
}

// TestStatements_SharedFragment verifies count, select, and delete are
// assembled from the identical WHERE text and arguments - the structural
// half of the cross-statement consistency property (the behavioral half is
// exercised against a live store in internal/store).
func TestStatements_SharedFragment(t *testing.T) {
	frag := compiledTestFragment(t)

	count := Count(frag)
	del := Delete(frag)
	sel, err := Select(frag, ListOptions{Page: 1, Limit: 5})
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(count.SQL, frag.SQL))
	assert.True(t, strings.HasSuffix(del.SQL, frag.SQL))
	assert.Contains(t, sel.SQL, frag.SQL)
	assert.Equal(t, count.Args, del.Args)
	assert.Equal(t, frag.Args, sel.Args[:len(frag.Args)])
}

func TestSelect_PaginationArgs(t *testing.T) {
	frag, err := Compile(nil, testScope())
	require.NoError(t, err)

	sel, err := Select(frag, ListOptions{Page: 3, Limit: 20})
	require.NoError(t, err)

	n := len(sel.Args)
	assert.Equal(t, 20, sel.Args[n-2], "limit")
	assert.Equal(t, 40, sel.Args[n-1], "offset = (page-1)*limit")
}

func TestSelect_InvalidPagination(t *testing.T) {
	frag, err := Compile(nil, testScope())
	require.NoError(t, err)

	testCases := []struct {
		name        string
		page, limit int
	}{
		{"page zero", 0, 10},
		{"negative page", -1, 10},
		{"negative limit", 1, -5},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Select(frag, ListOptions{Page: tc.page, Limit: tc.limit})
			require.Error(t, err)
			assert.True(t, IsInvalidPagination(err))
		})
	}
}

func TestSelect_PropertySort(t *testing.T) {
	frag, err := Compile(nil, testScope())
	require.NoError(t, err)

	sel, err := Select(frag, ListOptions{Page: 1, Limit: 5, Sort: "$.good.weight"})
	require.NoError(t, err)
	assert.Contains(t, sel.SQL, "ORDER BY json_extract(properties, '$.good.weight') ASC, data_id ASC")
}

func TestSelect_UnknownSortField(t *testing.T) {
	frag, err := Compile(nil, testScope())
	require.NoError(t, err)

	_, err = Select(frag, ListOptions{Page: 1, Limit: 5, Sort: "nonsense"})
	require.Error(t, err)
	assert.True(t, IsUnknownField(err))
}

func TestReserveSelect_RequiresPositiveLimit(t *testing.T) {
	frag := compiledTestFragment(t)
	_, err := ReserveSelect(frag, 0, "")
	require.Error(t, err)
	assert.True(t, IsInvalidPagination(err))
}

func TestBuildUpdate_PropertyChain(t *testing.T) {
	frag, err := Compile(nil, testScope())
	require.NoError(t, err)

	upd := Update{
		SetProperties:    map[string]any{"good.weight": 12.5, "status": "done"},
		RemoveProperties: []string{"temp"},
	}
	stmt, err := BuildUpdate(frag, upd, "2024-03-01T10:00:00Z", "worker1")
	require.NoError(t, err)

	// Paths apply in sorted order: good.weight before status, then removes.
	assert.Equal(t,
		"UPDATE data SET properties = json_remove(json_set(json_set(properties, "+
			"'$.good.weight', json(?)), '$.status', json(?)), '$.temp'), "+
			"modified_at = ?, modified_by = ? WHERE project_id = ? AND bucket_id = ?",
		stmt.SQL)
	assert.Equal(t, []any{"12.5", `"done"`, "2024-03-01T10:00:00Z", "worker1", int64(1), int64(2)}, stmt.Args)
}

func TestBuildUpdate_TagAndReservation(t *testing.T) {
	frag, err := Compile(nil, testScope())
	require.NoError(t, err)

	tagID := int64(7)
	reserved := false
	owner := ""
	stmt, err := BuildUpdate(frag, Update{TagID: &tagID, Reserved: &reserved, Owner: &owner},
		"2024-03-01T10:00:00Z", "admin")
	require.NoError(t, err)

	assert.Contains(t, stmt.SQL, "tag_id = ?")
	assert.Contains(t, stmt.SQL, "reserved = ?")
	assert.Contains(t, stmt.SQL, "reserved_by = NULL")
}

func TestBuildUpdate_RejectsBadPropertyPath(t *testing.T) {
	frag, err := Compile(nil, testScope())
	require.NoError(t, err)

	_, err = BuildUpdate(frag, Update{SetProperties: map[string]any{"bad'path": 1}}, "t", "u")
	require.Error(t, err)
	assert.True(t, IsUnknownField(err))
}
