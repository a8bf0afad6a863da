package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a data-operation test scenario.
// Scenarios seed a bucket, run a sequence of operations, and assert on the
// resulting trace and final state.
type Scenario struct {
	// Name uniquely identifies this scenario. It doubles as the golden
	// file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// User is the caller for every step unless the step overrides it.
	// Defaults to "harness".
	User string `yaml:"user,omitempty"`

	// Admin grants the caller admin privileges.
	Admin bool `yaml:"admin,omitempty"`

	// Seed contains records created before the steps run.
	Seed []SeedRecord `yaml:"seed,omitempty"`

	// Steps contains the operations to execute, each with an optional
	// expectation.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state after all steps.
	// Supported types: count, record.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// SeedRecord creates one record during setup. Tags are named; the harness
// creates each tag on first use.
type SeedRecord struct {
	Tag        string         `yaml:"tag,omitempty"`
	Properties map[string]any `yaml:"properties"`
}

// Step is one operation in the scenario flow.
type Step struct {
	// Op names the operation: get, create, modify, delete, reserve.
	Op string `yaml:"op"`

	// Rules is a rule tree in the server encoding; IDs is an explicit id
	// list. The service rejects steps carrying both.
	Rules map[string]any `yaml:"rules,omitempty"`
	IDs   []int64        `yaml:"ids,omitempty"`

	// Read shape (get).
	Page    int      `yaml:"page,omitempty"`
	Limit   *int     `yaml:"limit,omitempty"`
	Sort    string   `yaml:"sort,omitempty"`
	Columns []string `yaml:"columns,omitempty"`

	// Creation payload (create).
	Tag        string         `yaml:"tag,omitempty"`
	Properties map[string]any `yaml:"properties,omitempty"`

	// Mutation payload (modify).
	Set     map[string]any `yaml:"set,omitempty"`
	Remove  []string       `yaml:"remove,omitempty"`
	Release bool           `yaml:"release,omitempty"`

	// Reservation shape (reserve).
	Owner string `yaml:"owner,omitempty"`

	// Per-step caller override.
	User  string `yaml:"user,omitempty"`
	Admin bool   `yaml:"admin,omitempty"`

	// Expect validates the step outcome. If nil, the step must merely
	// succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected outcome of a step. All fields are subset
// checks - only set fields are validated.
type Expect struct {
	// Total is the expected matched-set size (get).
	Total *int64 `yaml:"total,omitempty"`

	// IDs is the expected page or claim content, in order (get, reserve).
	IDs []int64 `yaml:"ids,omitempty"`

	// Rows is the expected affected-row count (modify, delete).
	Rows *int64 `yaml:"rows,omitempty"`

	// Message is the expected no-match message (reserve).
	Message string `yaml:"message,omitempty"`

	// Record contains expected field values on the single result of a
	// one-id get or a single-record reserve. Subset match.
	Record map[string]any `yaml:"record,omitempty"`

	// Error is the expected error code (e.g. "AMBIGUOUS_RULE_TREE",
	// "RECORD_NOT_FOUND"). When set, the step must fail with that code.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates final state after all steps ran.
type Assertion struct {
	// Type specifies the assertion type:
	// - "count": the rules must match exactly Count records
	// - "record": the record with ID must carry the Expect field values
	Type string `yaml:"type"`

	// Rules scopes the count assertion. Empty rules count the whole bucket.
	Rules map[string]any `yaml:"rules,omitempty"`

	// Count is the expected match count (count).
	Count *int64 `yaml:"count,omitempty"`

	// ID addresses the record (record).
	ID int64 `yaml:"id,omitempty"`

	// Expect contains expected field values (record). Subset match.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertCount  = "count"
	AssertRecord = "record"
)

// Operation name constants.
const (
	OpGet     = "get"
	OpCreate  = "create"
	OpModify  = "modify"
	OpDelete  = "delete"
	OpReserve = "reserve"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, seed := range s.Seed {
		if seed.Properties == nil {
			return fmt.Errorf("seed[%d]: properties is required (use empty map for a bare record)", i)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateStep validates a single step based on its operation.
func validateStep(index int, step *Step) error {
	switch step.Op {
	case OpGet, OpModify, OpDelete, OpReserve:
		// Target comes from rules/ids; both empty means "everything in
		// scope", which is legitimate for get and reserve.
	case OpCreate:
		if step.Properties == nil && step.Tag == "" {
			return fmt.Errorf("steps[%d]: create needs properties or a tag", index)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}

	if step.Op == OpReserve && len(step.IDs) > 0 {
		return fmt.Errorf("steps[%d]: reserve is rules-addressed; ids are not allowed", index)
	}
	if step.Op == OpDelete && len(step.IDs) == 0 && len(step.Rules) == 0 {
		return fmt.Errorf("steps[%d]: delete requires rules or ids", index)
	}
	if step.Op == OpModify && len(step.Set) == 0 && len(step.Remove) == 0 &&
		step.Tag == "" && !step.Release {
		return fmt.Errorf("steps[%d]: modify changes nothing", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for count", index)
		}
	case AssertRecord:
		if a.ID == 0 {
			return fmt.Errorf("assertions[%d]: id is required for record", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for record", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
