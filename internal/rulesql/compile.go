package rulesql

import (
	"fmt"
	"strings"

	"github.com/amgator/databucket-app/internal/rule"
)

// Fragment is a compiled, side-effect-free condition: SQL text with '?'
// placeholders and the bound values in placeholder order. Values are never
// interpolated as literals. Scope is populated on fragments produced by
// Compile so downstream executors can re-check scope-relative references
// (tag reassignment) without re-deriving it.
type Fragment struct {
	SQL   string
	Args  []any
	Scope Scope
}

// Scope is the mandatory tenant constraint AND-ed at the outermost level of
// every compiled predicate. It is supplied by the service from the
// authenticated call context, never by the wire filter, and cannot be
// addressed or overridden through any field path (see package doc).
type Scope struct {
	ProjectID int64
	BucketID  int64
	// TagID narrows the scope to a single tag; used by reservation calls.
	TagID *int64
}

// fragment renders the scope conjunction.
func (s Scope) fragment() Fragment {
	sql := "project_id = ? AND bucket_id = ?"
	args := []any{s.ProjectID, s.BucketID}
	if s.TagID != nil {
		sql += " AND tag_id = ?"
		args = append(args, *s.TagID)
	}
	return Fragment{SQL: sql, Args: args, Scope: s}
}

// Compile compiles a canonical AST plus the mandatory scope into one
// parameterized condition fragment. A nil node compiles to the bare scope
// constraint ("no caller filter").
func Compile(node rule.Node, scope Scope) (Fragment, error) {
	frag := scope.fragment()
	if node == nil {
		return frag, nil
	}

	compiled, err := compileNode(node)
	if err != nil {
		return Fragment{}, err
	}

	frag.SQL = frag.SQL + " AND (" + compiled.SQL + ")"
	frag.Args = append(frag.Args, compiled.Args...)
	return frag, nil
}

func compileNode(n rule.Node) (Fragment, error) {
	switch node := n.(type) {
	case rule.Leaf:
		return compileLeaf(node)
	case rule.Group:
		return compileGroup(node)
	default:
		return Fragment{}, fmt.Errorf("unknown rule node type %T", n)
	}
}

// compileGroup joins children with the group connective, parenthesizing
// each child to preserve precedence regardless of nesting.
func compileGroup(g rule.Group) (Fragment, error) {
	if len(g.Children) == 0 {
		return Fragment{}, fmt.Errorf("group has zero children")
	}

	if g.Con == rule.Not {
		child, err := compileNode(g.Children[0])
		if err != nil {
			return Fragment{}, err
		}
		return Fragment{SQL: "NOT (" + child.SQL + ")", Args: child.Args}, nil
	}

	connective := " AND "
	if g.Con == rule.Or {
		connective = " OR "
	}

	parts := make([]string, 0, len(g.Children))
	var args []any
	for _, childNode := range g.Children {
		child, err := compileNode(childNode)
		if err != nil {
			return Fragment{}, err
		}
		parts = append(parts, "("+child.SQL+")")
		args = append(args, child.Args...)
	}
	return Fragment{SQL: strings.Join(parts, connective), Args: args}, nil
}

func compileLeaf(leaf rule.Leaf) (Fragment, error) {
	res, err := resolveField(leaf.Field)
	if err != nil {
		return Fragment{}, err
	}

	switch leaf.Op {
	case rule.OpEq, rule.OpNeq:
		return compileComparison(leaf, res, map[rule.Op]string{rule.OpEq: "=", rule.OpNeq: "!="}[leaf.Op])
	case rule.OpGt, rule.OpGte, rule.OpLt, rule.OpLte:
		return compileOrdering(leaf, res)
	case rule.OpIn, rule.OpNotIn:
		return compileMembership(leaf, res)
	case rule.OpBetween:
		return compileBetween(leaf, res)
	case rule.OpLike, rule.OpNotLike:
		return compileLike(leaf, res)
	case rule.OpIsNull, rule.OpNotNull:
		return compileNullCheck(leaf, res)
	case rule.OpExists, rule.OpNotExists:
		return compileExistence(leaf, res)
	default:
		return Fragment{}, fmt.Errorf("unknown operator %q", leaf.Op)
	}
}

// comparisonExpr returns the left-hand SQL expression for a leaf.
func comparisonExpr(res resolved, kind rule.ValueKind) string {
	if res.isProperty {
		return propertyExpr(res.jsonPath, kind)
	}
	return res.col.sqlName
}

func compileComparison(leaf rule.Leaf, res resolved, sqlOp string) (Fragment, error) {
	kind := rule.Kind(leaf.Value)
	if kind == rule.KindNull || kind == rule.KindArray {
		return Fragment{}, typeMismatch(leaf.Field.String(), "operator %q requires a scalar value", leaf.Op)
	}
	if !res.isProperty {
		if err := checkColumnLiteral(leaf.Field.String(), res.col, kind); err != nil {
			return Fragment{}, err
		}
	}
	arg, err := rule.Native(leaf.Value)
	if err != nil {
		return Fragment{}, typeMismatch(leaf.Field.String(), "%v", err)
	}
	return Fragment{SQL: comparisonExpr(res, kind) + " " + sqlOp + " ?", Args: []any{arg}}, nil
}

func compileOrdering(leaf rule.Leaf, res resolved) (Fragment, error) {
	kind := rule.Kind(leaf.Value)
	switch kind {
	case rule.KindNumber, rule.KindString:
	case rule.KindNull:
		// A typed comparison against null is the empty-property cast:
		// there is no cast target to infer.
		if res.isProperty {
			return Fragment{}, emptyPropertyCast(leaf.Field.String())
		}
		return Fragment{}, typeMismatch(leaf.Field.String(), "operator %q requires a number or string", leaf.Op)
	default:
		return Fragment{}, typeMismatch(leaf.Field.String(), "operator %q requires a number or string", leaf.Op)
	}
	if !res.isProperty {
		if err := checkColumnLiteral(leaf.Field.String(), res.col, kind); err != nil {
			return Fragment{}, err
		}
		if res.col.typ == typeBool {
			return Fragment{}, typeMismatch(leaf.Field.String(), "cannot order on a boolean column")
		}
	}

	sqlOp := map[rule.Op]string{
		rule.OpGt: ">", rule.OpGte: ">=", rule.OpLt: "<", rule.OpLte: "<=",
	}[leaf.Op]
	arg, err := rule.Native(leaf.Value)
	if err != nil {
		return Fragment{}, typeMismatch(leaf.Field.String(), "%v", err)
	}
	return Fragment{SQL: comparisonExpr(res, kind) + " " + sqlOp + " ?", Args: []any{arg}}, nil
}

func compileMembership(leaf rule.Leaf, res resolved) (Fragment, error) {
	arr, ok := leaf.Value.(rule.Array)
	if !ok || len(arr) == 0 {
		return Fragment{}, typeMismatch(leaf.Field.String(), "operator %q requires a non-empty array", leaf.Op)
	}

	elemKind := rule.Kind(arr[0])
	args := make([]any, 0, len(arr))
	placeholders := make([]string, 0, len(arr))
	for i, elem := range arr {
		kind := rule.Kind(elem)
		if kind == rule.KindNull || kind == rule.KindArray {
			return Fragment{}, typeMismatch(leaf.Field.String(), "element %d is not a scalar", i)
		}
		if kind != elemKind {
			return Fragment{}, typeMismatch(leaf.Field.String(), "mixed element types in %q list", leaf.Op)
		}
		if !res.isProperty {
			if err := checkColumnLiteral(leaf.Field.String(), res.col, kind); err != nil {
				return Fragment{}, err
			}
		}
		arg, err := rule.Native(elem)
		if err != nil {
			return Fragment{}, typeMismatch(leaf.Field.String(), "%v", err)
		}
		args = append(args, arg)
		placeholders = append(placeholders, "?")
	}

	sqlOp := "IN"
	if leaf.Op == rule.OpNotIn {
		sqlOp = "NOT IN"
	}
	sql := fmt.Sprintf("%s %s (%s)", comparisonExpr(res, elemKind), sqlOp, strings.Join(placeholders, ", "))
	return Fragment{SQL: sql, Args: args}, nil
}

func compileBetween(leaf rule.Leaf, res resolved) (Fragment, error) {
	arr, ok := leaf.Value.(rule.Array)
	if !ok || len(arr) != 2 {
		return Fragment{}, typeMismatch(leaf.Field.String(), "between requires exactly two bounds")
	}
	kind := rule.Kind(arr[0])
	if kind != rule.KindNumber && kind != rule.KindString {
		return Fragment{}, typeMismatch(leaf.Field.String(), "between bounds must be numbers or strings")
	}
	if rule.Kind(arr[1]) != kind {
		return Fragment{}, typeMismatch(leaf.Field.String(), "between bounds must share one type")
	}
	if !res.isProperty {
		if err := checkColumnLiteral(leaf.Field.String(), res.col, kind); err != nil {
			return Fragment{}, err
		}
		if res.col.typ == typeBool {
			return Fragment{}, typeMismatch(leaf.Field.String(), "cannot range over a boolean column")
		}
	}

	low, err := rule.Native(arr[0])
	if err != nil {
		return Fragment{}, typeMismatch(leaf.Field.String(), "%v", err)
	}
	high, err := rule.Native(arr[1])
	if err != nil {
		return Fragment{}, typeMismatch(leaf.Field.String(), "%v", err)
	}
	return Fragment{
		SQL:  comparisonExpr(res, kind) + " BETWEEN ? AND ?",
		Args: []any{low, high},
	}, nil
}

func compileLike(leaf rule.Leaf, res resolved) (Fragment, error) {
	str, ok := leaf.Value.(rule.String)
	if !ok {
		if rule.Kind(leaf.Value) == rule.KindNull && res.isProperty {
			return Fragment{}, emptyPropertyCast(leaf.Field.String())
		}
		return Fragment{}, typeMismatch(leaf.Field.String(), "operator %q requires a string", leaf.Op)
	}
	if !res.isProperty && res.col.typ != typeText {
		return Fragment{}, typeMismatch(leaf.Field.String(), "substring match requires a text column")
	}

	sqlOp := "LIKE"
	if leaf.Op == rule.OpNotLike {
		sqlOp = "NOT LIKE"
	}
	sql := fmt.Sprintf("%s %s '%%' || ? || '%%'", comparisonExpr(res, rule.KindString), sqlOp)
	return Fragment{SQL: sql, Args: []any{string(str)}}, nil
}

// compileNullCheck handles isnull/notnull. For properties a JSON null value
// and a missing path are both "null" to callers, matching the original
// jsonb behavior.
func compileNullCheck(leaf rule.Leaf, res resolved) (Fragment, error) {
	if res.isProperty {
		probe := propertyTypeExpr(res.jsonPath)
		if leaf.Op == rule.OpIsNull {
			return Fragment{SQL: fmt.Sprintf("(%s IS NULL OR %s = 'null')", probe, probe)}, nil
		}
		return Fragment{SQL: fmt.Sprintf("(%s IS NOT NULL AND %s != 'null')", probe, probe)}, nil
	}

	if leaf.Op == rule.OpIsNull {
		return Fragment{SQL: res.col.sqlName + " IS NULL"}, nil
	}
	return Fragment{SQL: res.col.sqlName + " IS NOT NULL"}, nil
}

// compileExistence handles exists/notexists. On a property the path itself
// is probed (a stored JSON null still exists); on a column existence
// degenerates to a null check.
func compileExistence(leaf rule.Leaf, res resolved) (Fragment, error) {
	if res.isProperty {
		probe := propertyTypeExpr(res.jsonPath)
		if leaf.Op == rule.OpExists {
			return Fragment{SQL: probe + " IS NOT NULL"}, nil
		}
		return Fragment{SQL: probe + " IS NULL"}, nil
	}

	if leaf.Op == rule.OpExists {
		return Fragment{SQL: res.col.sqlName + " IS NOT NULL"}, nil
	}
	return Fragment{SQL: res.col.sqlName + " IS NULL"}, nil
}

// checkColumnLiteral validates a literal kind against a column's type.
func checkColumnLiteral(field string, col column, kind rule.ValueKind) error {
	switch col.typ {
	case typeNumeric:
		if kind != rule.KindNumber {
			return typeMismatch(field, "numeric column requires a number literal")
		}
	case typeText, typeTime:
		if kind != rule.KindString {
			return typeMismatch(field, "text column requires a string literal")
		}
	case typeBool:
		if kind != rule.KindBool {
			return typeMismatch(field, "boolean column requires a boolean literal")
		}
	}
	return nil
}
