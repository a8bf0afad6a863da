package harness

// OpEvent records one executed step for the trace. Request holds the
// step's inputs as they appeared in the scenario; Outcome holds what the
// operation reported (ids, row counts, error codes).
type OpEvent struct {
	Op      string         `json:"op"`
	Request map[string]any `json:"request,omitempty"`
	Outcome map[string]any `json:"outcome"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success: every step expectation and
	// every final assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per executed step, in order.
	Trace []OpEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []OpEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddEvent appends a step event to the trace.
func (r *Result) AddEvent(op string, request, outcome map[string]any) {
	r.Trace = append(r.Trace, OpEvent{Op: op, Request: request, Outcome: outcome})
}
