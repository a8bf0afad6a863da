package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/amgator/databucket-app/internal/data"
	"github.com/amgator/databucket-app/internal/rule"
	"github.com/amgator/databucket-app/internal/rulesql"
	"github.com/amgator/databucket-app/internal/store"
	"github.com/amgator/databucket-app/internal/testutil"
)

// Scenarios run against a fixed scope: one project, one bucket.
const (
	scenarioProject = int64(1)
	scenarioBucket  = "harness"
	defaultUser     = "harness"
)

// harness executes one scenario against a fresh store.
type harness struct {
	store *store.Store
	svc   *data.Service
	scope rulesql.Scope
	user  string
	admin bool
	tags  map[string]int64
	clock *testutil.Clock
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation, with a
// deterministic clock so audit fields are reproducible.
//
// Execution flow:
//  1. Create fresh in-memory database and the scenario bucket
//  2. Create seed records
//  3. Execute steps with expectation validation
//  4. Evaluate final-state assertions
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	clock := testutil.NewClock()
	user := scenario.User
	if user == "" {
		user = defaultUser
	}

	h := &harness{
		store: st,
		svc:   data.New(st, data.Options{Clock: clock.Now}),
		user:  user,
		admin: scenario.Admin,
		tags:  make(map[string]int64),
		clock: clock,
	}

	ctx := context.Background()
	bucketID, err := st.CreateBucket(ctx, store.Bucket{
		ProjectID: scenarioProject,
		Name:      scenarioBucket,
		CreatedAt: clock.Now().Format(time.RFC3339),
		CreatedBy: user,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario bucket: %w", err)
	}
	h.scope = rulesql.Scope{ProjectID: scenarioProject, BucketID: bucketID}

	result := NewResult()

	for i, seed := range scenario.Seed {
		if err := h.executeSeed(ctx, i, seed); err != nil {
			return nil, err
		}
	}

	for i, step := range scenario.Steps {
		h.executeStep(ctx, i, step, result)
	}

	h.evaluateAssertions(ctx, scenario.Assertions, result)

	return result, nil
}

// executeSeed creates one setup record. Seed steps are assumed to succeed.
func (h *harness) executeSeed(ctx context.Context, index int, seed SeedRecord) error {
	req := data.CreateRequest{Properties: seed.Properties}
	if seed.Tag != "" {
		tagID, err := h.resolveTag(ctx, seed.Tag)
		if err != nil {
			return fmt.Errorf("seed[%d]: %w", index, err)
		}
		req.TagID = &tagID
	}
	if _, err := h.svc.Create(ctx, h.scope, h.caller(Step{}), req); err != nil {
		return fmt.Errorf("seed[%d]: %w", index, err)
	}
	return nil
}

// executeStep runs one operation and validates its expectation. Step
// failures mark the result; they never abort the scenario, so a trace is
// always complete.
func (h *harness) executeStep(ctx context.Context, index int, step Step, result *Result) {
	request := stepRequest(step)

	outcome, err := h.dispatch(ctx, step, result, index)
	if err != nil {
		code := errorCode(err)
		outcome = map[string]any{"error": code}
		if step.Expect == nil || step.Expect.Error == "" {
			result.AddError(fmt.Sprintf("steps[%d] %s: unexpected error: %v", index, step.Op, err))
		} else if step.Expect.Error != code {
			result.AddError(fmt.Sprintf("steps[%d] %s: expected error %q, got %q (%v)",
				index, step.Op, step.Expect.Error, code, err))
		}
	} else if step.Expect != nil && step.Expect.Error != "" {
		result.AddError(fmt.Sprintf("steps[%d] %s: expected error %q, operation succeeded",
			index, step.Op, step.Expect.Error))
	}

	result.AddEvent(step.Op, request, outcome)
}

// dispatch executes the step's operation and returns its trace outcome.
// Expectations other than Error are checked inline, against the live
// values rather than the trace rendering.
func (h *harness) dispatch(ctx context.Context, step Step, result *Result, index int) (map[string]any, error) {
	caller := h.caller(step)

	switch step.Op {
	case OpGet:
		limit := 25
		if step.Limit != nil {
			limit = *step.Limit
		}
		page, err := h.svc.Get(ctx, h.scope, data.Query{
			Target:  data.Target{IDs: step.IDs, Filter: rule.Filter{Rules: step.Rules}},
			Page:    max(step.Page, 1),
			Limit:   limit,
			Sort:    step.Sort,
			Columns: step.Columns,
		})
		if err != nil {
			return nil, err
		}
		ids := recordIDs(page.Data)
		h.checkGetExpect(index, step.Expect, page, ids, result)
		return map[string]any{"total": page.Total, "ids": ids}, nil

	case OpCreate:
		req := data.CreateRequest{Properties: step.Properties}
		if step.Tag != "" {
			tagID, err := h.resolveTag(ctx, step.Tag)
			if err != nil {
				return nil, err
			}
			req.TagID = &tagID
		}
		rec, err := h.svc.Create(ctx, h.scope, caller, req)
		if err != nil {
			return nil, err
		}
		return map[string]any{"id": rec.ID}, nil

	case OpModify:
		upd := rulesql.Update{SetProperties: step.Set, RemoveProperties: step.Remove}
		if step.Tag != "" {
			tagID, err := h.resolveTag(ctx, step.Tag)
			if err != nil {
				return nil, err
			}
			upd.TagID = &tagID
		}
		if step.Release {
			released := false
			noOwner := ""
			upd.Reserved = &released
			upd.Owner = &noOwner
		}
		rows, err := h.svc.Modify(ctx, h.scope, caller, h.target(step), upd)
		if err != nil {
			return nil, err
		}
		h.checkRowsExpect(index, step, rows, result)
		return map[string]any{"modified": rows}, nil

	case OpDelete:
		rows, err := h.svc.Delete(ctx, h.scope, caller, h.target(step))
		if err != nil {
			return nil, err
		}
		h.checkRowsExpect(index, step, rows, result)
		return map[string]any{"deleted": rows}, nil

	case OpReserve:
		limit := 1
		if step.Limit != nil {
			limit = *step.Limit
		}
		res, err := h.svc.Reserve(ctx, h.scope, caller, data.ReserveRequest{
			Filter:      rule.Filter{Rules: step.Rules},
			Limit:       limit,
			Sort:        step.Sort,
			TargetOwner: step.Owner,
		})
		if err != nil {
			return nil, err
		}
		h.checkReserveExpect(index, step.Expect, res, result)
		if res.Message != "" {
			return map[string]any{"message": res.Message}, nil
		}
		claimed := res.IDs
		if res.Record != nil {
			claimed = []int64{asInt64(res.Record["id"])}
		}
		// Tokens are UUIDv7 and would break trace determinism.
		return map[string]any{"claimed": claimed}, nil

	default:
		return nil, fmt.Errorf("unknown op %q", step.Op)
	}
}

// caller resolves the effective caller for a step.
func (h *harness) caller(step Step) data.Caller {
	user := step.User
	if user == "" {
		user = h.user
	}
	return data.Caller{Username: user, Admin: step.Admin || h.admin}
}

// target folds a step's addressing fields into an operation target.
func (h *harness) target(step Step) data.Target {
	return data.Target{IDs: step.IDs, Filter: rule.Filter{Rules: step.Rules}}
}

// resolveTag returns the id for a tag name, creating the tag on first use.
func (h *harness) resolveTag(ctx context.Context, name string) (int64, error) {
	if id, ok := h.tags[name]; ok {
		return id, nil
	}
	id, err := h.store.CreateTag(ctx, store.Tag{
		ProjectID: h.scope.ProjectID,
		BucketID:  h.scope.BucketID,
		Name:      name,
	})
	if err != nil {
		return 0, fmt.Errorf("creating tag %q: %w", name, err)
	}
	h.tags[name] = id
	return id, nil
}

// stepRequest renders a step's inputs for the trace. Only set fields
// appear, so traces stay stable when the scenario format grows.
func stepRequest(step Step) map[string]any {
	request := map[string]any{}
	if len(step.Rules) > 0 {
		request["rules"] = step.Rules
	}
	if len(step.IDs) > 0 {
		request["ids"] = step.IDs
	}
	if step.Limit != nil {
		request["limit"] = *step.Limit
	}
	if step.Sort != "" {
		request["sort"] = step.Sort
	}
	if len(step.Columns) > 0 {
		request["columns"] = step.Columns
	}
	if step.Tag != "" {
		request["tag"] = step.Tag
	}
	if len(step.Properties) > 0 {
		request["properties"] = step.Properties
	}
	if len(step.Set) > 0 {
		request["set"] = step.Set
	}
	if len(step.Remove) > 0 {
		request["remove"] = step.Remove
	}
	if step.Release {
		request["release"] = true
	}
	if step.Owner != "" {
		request["owner"] = step.Owner
	}
	if len(request) == 0 {
		return nil
	}
	return request
}

// recordIDs extracts the id column from projected records.
func recordIDs(records []map[string]any) []int64 {
	ids := make([]int64, 0, len(records))
	for _, rec := range records {
		ids = append(ids, asInt64(rec["id"]))
	}
	return ids
}

// asInt64 reads a projected id value.
func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}
