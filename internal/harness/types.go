package harness

import (
	"github.com/roach88/treesync/internal/document"
	"github.com/roach88/treesync/internal/engine"
	"github.com/roach88/treesync/internal/graph"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success: the operation failed exactly as
	// expect_error says and every assertion held.
	Pass bool `json:"pass"`

	// Node is the store path of the seeded node.
	Node string `json:"node"`

	// Mutations are the mutating store calls made by the operation under
	// test, oldest first. Seeding calls are not included when a target is
	// reconciled.
	Mutations []graph.Mutation `json:"mutations"`

	// Summary is what the operation reported.
	Summary engine.Summary `json:"summary"`

	// ErrorCode is the SyncErrorCode the operation failed with, if any.
	ErrorCode string `json:"error_code,omitempty"`

	// Export is the full serialization of the seeded node after the
	// operation.
	Export *document.Document `json:"export"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Mutations: []graph.Mutation{},
		Errors:    []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
