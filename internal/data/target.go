package data

import (
	"errors"

	"github.com/amgator/databucket-app/internal/rule"
	"github.com/amgator/databucket-app/internal/rulesql"
)

// Target addresses the records an operation acts on: an explicit id list,
// a wire-encoded rule tree, or an already-decoded AST (a saved filter).
// At most one may be set; an empty target matches everything in scope.
type Target struct {
	IDs    []int64
	Filter rule.Filter
	Node   rule.Node
}

// node folds the target into a predicate AST. An id list becomes an id
// membership leaf, so all addressing modes run through the same compiler
// and scope injection.
func (t Target) node() (rule.Node, error) {
	filterNode, err := rule.Decode(t.Filter)
	if err != nil {
		return nil, err
	}

	supplied := 0
	if len(t.IDs) > 0 {
		supplied++
	}
	if filterNode != nil {
		supplied++
	}
	if t.Node != nil {
		supplied++
	}
	if supplied > 1 {
		return nil, &rule.ParseError{
			Code:    rule.ErrCodeAmbiguous,
			Message: "target carries more than one of: id list, rule tree, saved filter",
		}
	}

	switch {
	case t.Node != nil:
		return t.Node, nil
	case len(t.IDs) > 0:
		ids := make(rule.Array, len(t.IDs))
		for i, id := range t.IDs {
			ids[i] = rule.Number(float64(id))
		}
		return rule.Leaf{Field: rule.Column("id"), Op: rule.OpIn, Value: ids}, nil
	default:
		return filterNode, nil
	}
}

// compile resolves the target to a condition fragment under a scope,
// counting parser and compiler rejections.
func (s *Service) compile(t Target, scope rulesql.Scope) (rulesql.Fragment, error) {
	node, err := t.node()
	if err != nil {
		var pe *rule.ParseError
		if errors.As(err, &pe) {
			s.metrics.RuleParseFailuresTotal.WithLabelValues(string(pe.Code)).Inc()
		}
		return rulesql.Fragment{}, err
	}

	frag, err := rulesql.Compile(node, scope)
	if err != nil {
		var ce *rulesql.CompileError
		if errors.As(err, &ce) {
			s.metrics.RuleCompileFailuresTotal.WithLabelValues(string(ce.Code)).Inc()
		}
		return rulesql.Fragment{}, err
	}
	return frag, nil
}
