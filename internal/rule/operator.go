package rule

// Op is a canonical comparison operator. Every decoder maps its own operator
// vocabulary (legacy names, SQL-ish symbols, JsonLogic tokens) onto this set,
// so the compiler only ever sees canonical operators.
type Op string

const (
	OpEq        Op = "eq"
	OpNeq       Op = "neq"
	OpGt        Op = "gt"
	OpGte       Op = "gte"
	OpLt        Op = "lt"
	OpLte       Op = "lte"
	OpIn        Op = "in"
	OpNotIn     Op = "nin"
	OpBetween   Op = "between"
	OpLike      Op = "like"
	OpNotLike   Op = "notlike"
	OpIsNull    Op = "isnull"
	OpNotNull   Op = "notnull"
	OpExists    Op = "exists"
	OpNotExists Op = "notexists"
)

// operatorAliases maps every accepted wire spelling to its canonical form.
// The legacy API used verbose names (including the long-standing "grater"
// misspelling, kept for compatibility), the query builder emits symbols.
var operatorAliases = map[string]Op{
	// canonical names are accepted as-is
	"eq": OpEq, "neq": OpNeq, "gt": OpGt, "gte": OpGte, "lt": OpLt, "lte": OpLte,
	"in": OpIn, "nin": OpNotIn, "between": OpBetween,
	"like": OpLike, "notlike": OpNotLike,
	"isnull": OpIsNull, "notnull": OpNotNull,
	"exists": OpExists, "notexists": OpNotExists,

	// symbols
	"=": OpEq, "==": OpEq, "!=": OpNeq, "<>": OpNeq,
	">": OpGt, ">=": OpGte, "<": OpLt, "<=": OpLte,

	// legacy condition names
	"equal":         OpEq,
	"not_equal":     OpNeq,
	"grater":        OpGt,
	"greater":       OpGt,
	"grater_equal":  OpGte,
	"greater_equal": OpGte,
	"less":          OpLt,
	"less_equal":    OpLte,
	"not_in":        OpNotIn,
	"not_like":      OpNotLike,
	"is_null":       OpIsNull,
	"is_not_null":   OpNotNull,
	"similar":       OpLike,
}

// LookupOp resolves a wire operator spelling to its canonical Op.
func LookupOp(name string) (Op, bool) {
	op, ok := operatorAliases[name]
	return op, ok
}

// takesNoValue reports whether the operator carries no comparison literal.
func takesNoValue(op Op) bool {
	switch op {
	case OpIsNull, OpNotNull, OpExists, OpNotExists:
		return true
	}
	return false
}

// wantsArray reports whether the operator requires an array literal.
func wantsArray(op Op) bool {
	switch op {
	case OpIn, OpNotIn, OpBetween:
		return true
	}
	return false
}
