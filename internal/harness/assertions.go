package harness

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/amgator/databucket-app/internal/data"
	"github.com/amgator/databucket-app/internal/rule"
	"github.com/amgator/databucket-app/internal/rulesql"
	"github.com/amgator/databucket-app/internal/store"
)

// checkGetExpect validates a get step's expectation against the live page.
func (h *harness) checkGetExpect(index int, expect *Expect, page data.Page, ids []int64, result *Result) {
	if expect == nil {
		return
	}
	if expect.Total != nil && page.Total != *expect.Total {
		result.AddError(fmt.Sprintf("steps[%d] get: expected total %d, got %d",
			index, *expect.Total, page.Total))
	}
	if expect.IDs != nil && !reflect.DeepEqual(expect.IDs, ids) {
		result.AddError(fmt.Sprintf("steps[%d] get: expected ids %v, got %v",
			index, expect.IDs, ids))
	}
	if expect.Record != nil {
		if len(page.Data) != 1 {
			result.AddError(fmt.Sprintf("steps[%d] get: record expectation needs exactly one result, got %d",
				index, len(page.Data)))
			return
		}
		matchRecord(index, "get", expect.Record, page.Data[0], result)
	}
}

// checkRowsExpect validates an affected-row expectation.
func (h *harness) checkRowsExpect(index int, step Step, rows int64, result *Result) {
	if step.Expect == nil || step.Expect.Rows == nil {
		return
	}
	if rows != *step.Expect.Rows {
		result.AddError(fmt.Sprintf("steps[%d] %s: expected %d affected row(s), got %d",
			index, step.Op, *step.Expect.Rows, rows))
	}
}

// checkReserveExpect validates a reserve step's expectation.
func (h *harness) checkReserveExpect(index int, expect *Expect, res data.ReserveResult, result *Result) {
	if expect == nil {
		return
	}
	if expect.Message != "" && res.Message != expect.Message {
		result.AddError(fmt.Sprintf("steps[%d] reserve: expected message %q, got %q",
			index, expect.Message, res.Message))
	}
	if expect.IDs != nil {
		claimed := res.IDs
		if res.Record != nil {
			claimed = []int64{asInt64(res.Record["id"])}
		}
		if !reflect.DeepEqual(expect.IDs, claimed) {
			result.AddError(fmt.Sprintf("steps[%d] reserve: expected claim %v, got %v",
				index, expect.IDs, claimed))
		}
	}
	if expect.Record != nil {
		if res.Record == nil {
			result.AddError(fmt.Sprintf("steps[%d] reserve: expected a single-record claim", index))
			return
		}
		matchRecord(index, "reserve", expect.Record, res.Record, result)
	}
}

// evaluateAssertions checks final state after all steps ran.
func (h *harness) evaluateAssertions(ctx context.Context, assertions []Assertion, result *Result) {
	for i, a := range assertions {
		switch a.Type {
		case AssertCount:
			page, err := h.svc.Get(ctx, h.scope, data.Query{
				Target: data.Target{Filter: rule.Filter{Rules: a.Rules}},
				Page:   1,
			})
			if err != nil {
				result.AddError(fmt.Sprintf("assertions[%d] count: %v", i, err))
				continue
			}
			if page.Total != *a.Count {
				result.AddError(fmt.Sprintf("assertions[%d] count: expected %d match(es), got %d",
					i, *a.Count, page.Total))
			}

		case AssertRecord:
			rec, err := h.svc.GetOne(ctx, h.scope, a.ID, nil)
			if err != nil {
				result.AddError(fmt.Sprintf("assertions[%d] record %d: %v", i, a.ID, err))
				continue
			}
			for field, want := range a.Expect {
				got, ok := rec[field]
				if !ok {
					result.AddError(fmt.Sprintf("assertions[%d] record %d: field %q absent",
						i, a.ID, field))
					continue
				}
				if !valuesEqual(want, got) {
					result.AddError(fmt.Sprintf("assertions[%d] record %d: field %q expected %v, got %v",
						i, a.ID, field, want, got))
				}
			}
		}
	}
}

// matchRecord checks a subset expectation against one projected record.
func matchRecord(index int, op string, expect, record map[string]any, result *Result) {
	for field, want := range expect {
		got, ok := record[field]
		if !ok {
			result.AddError(fmt.Sprintf("steps[%d] %s: field %q absent from record", index, op, field))
			continue
		}
		if !valuesEqual(want, got) {
			result.AddError(fmt.Sprintf("steps[%d] %s: field %q expected %v, got %v",
				index, op, field, want, got))
		}
	}
}

// valuesEqual compares a scenario-supplied value with an operation result.
// YAML hands back int where records carry int64 or float64, so numbers
// compare by value, not by type.
func valuesEqual(want, got any) bool {
	if wn, ok := asNumber(want); ok {
		gn, ok := asNumber(got)
		return ok && wn == gn
	}
	switch w := want.(type) {
	case map[string]any:
		g, ok := got.(map[string]any)
		if !ok {
			return false
		}
		for field, wv := range w {
			gv, present := g[field]
			if !present || !valuesEqual(wv, gv) {
				return false
			}
		}
		return true
	case []any:
		g, ok := got.([]any)
		if !ok || len(w) != len(g) {
			return false
		}
		for i := range w {
			if !valuesEqual(w[i], g[i]) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(want, got)
	}
}

// asNumber normalizes numeric types for comparison.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// errorCode maps an operation error to its code for expectation matching.
func errorCode(err error) string {
	var parseErr *rule.ParseError
	if errors.As(err, &parseErr) {
		return string(parseErr.Code)
	}
	var compileErr *rulesql.CompileError
	if errors.As(err, &compileErr) {
		return string(compileErr.Code)
	}
	var storeErr *store.StoreError
	if errors.As(err, &storeErr) {
		return string(storeErr.Code)
	}
	if errors.Is(err, data.ErrTargetOwnerForbidden) {
		return "TARGET_OWNER_FORBIDDEN"
	}
	return "UNKNOWN"
}
