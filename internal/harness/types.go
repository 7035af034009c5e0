package harness

// TraceEvent records one executed step.
type TraceEvent struct {
	Step      int      `json:"step"`
	Op        string   `json:"op"`
	Name      string   `json:"name,omitempty"`
	BlockType string   `json:"block_type,omitempty"`
	OK        bool     `json:"ok"`
	Code      string   `json:"code,omitempty"`
	Records   []string `json:"records,omitempty"` // IDs returned by a lookup
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
