package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amgator/databucket-app/internal/data"
	"github.com/amgator/databucket-app/internal/rule"
)

// filterFlags carries the three wire encodings a command accepts for a
// rule tree. Each flag takes raw JSON; decoding and the one-encoding-only
// check happen in the rule package.
type filterFlags struct {
	Rules      string
	Logic      string
	Conditions string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Rules, "rules", "", "rule tree as JSON (server encoding)")
	cmd.Flags().StringVar(&f.Logic, "logic", "", "rule tree as JSON (query-builder encoding)")
	cmd.Flags().StringVar(&f.Conditions, "conditions", "", "rule list as JSON (legacy encoding)")
}

// filter parses the flag payloads into a wire filter. Invalid JSON is a
// malformed rule tree, same as over the API.
func (f *filterFlags) filter() (rule.Filter, error) {
	var out rule.Filter
	if f.Rules != "" {
		if err := json.Unmarshal([]byte(f.Rules), &out.Rules); err != nil {
			return rule.Filter{}, &rule.ParseError{
				Code:    rule.ErrCodeMalformed,
				Message: fmt.Sprintf("--rules is not valid JSON: %v", err),
			}
		}
	}
	if f.Logic != "" {
		if err := json.Unmarshal([]byte(f.Logic), &out.Logic); err != nil {
			return rule.Filter{}, &rule.ParseError{
				Code:    rule.ErrCodeMalformed,
				Message: fmt.Sprintf("--logic is not valid JSON: %v", err),
			}
		}
	}
	if f.Conditions != "" {
		if err := json.Unmarshal([]byte(f.Conditions), &out.Conditions); err != nil {
			return rule.Filter{}, &rule.ParseError{
				Code:    rule.ErrCodeMalformed,
				Message: fmt.Sprintf("--conditions is not valid JSON: %v", err),
			}
		}
	}
	return out, nil
}

// targetFlags extends filterFlags with the other addressing modes: explicit
// record ids and saved filters.
type targetFlags struct {
	filterFlags
	IDs      []int64
	FilterID int64
}

func (t *targetFlags) register(cmd *cobra.Command) {
	t.filterFlags.register(cmd)
	cmd.Flags().Int64SliceVar(&t.IDs, "id", nil, "record id (repeatable)")
	cmd.Flags().Int64Var(&t.FilterID, "filter", 0, "saved filter id")
}

// target builds the operation target. A saved filter is loaded from the
// store and fed to the pipeline as an already-canonical tree; the service
// rejects mixed addressing modes.
func (t *targetFlags) target(ctx context.Context, rt *runtime, projectID int64) (data.Target, error) {
	f, err := t.filter()
	if err != nil {
		return data.Target{}, err
	}
	tgt := data.Target{IDs: t.IDs, Filter: f}

	if t.FilterID != 0 {
		saved, err := rt.store.GetFilter(ctx, projectID, t.FilterID)
		if err != nil {
			return data.Target{}, err
		}
		node, err := rule.UnmarshalCanonical(saved.Criteria)
		if err != nil {
			return data.Target{}, fmt.Errorf("saved filter %d: %w", t.FilterID, err)
		}
		tgt.Node = node
	}
	return tgt, nil
}
