package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/treesync/internal/engine"
	"github.com/roach88/treesync/internal/graph"
	"github.com/roach88/treesync/internal/store"
	"github.com/roach88/treesync/internal/testutil"
)

// Harness holds the store and engine of one scenario run.
type Harness struct {
	store    *store.Store
	recorder *graph.Recorder
	engine   *engine.Engine
	logger   *slog.Logger
}

// Option configures a run.
type Option func(*Harness)

// WithLogger routes engine logs to l. Default: logs are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic guids ensure reproducible results.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Import the seed under the root
// 3. Reconcile the seeded node against the target, if any
// 4. Compare the operation's error code with expect_error
// 5. Evaluate assertions and export the seeded node
//
// The returned error reports a failure of the harness itself (including a
// seed that does not import when a target is given); scenario failures are
// reported in Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	seed, err := scenario.SeedDocument()
	if err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	target, err := scenario.TargetDocument()
	if err != nil {
		return nil, fmt.Errorf("decode target: %w", err)
	}

	st, err := store.Open(":memory:", store.WithGUIDGenerator(testutil.NewSequentialGUIDs("g")))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	for _, opt := range opts {
		opt(h)
	}
	h.recorder = graph.NewRecorder(st)
	h.engine = engine.New(h.recorder, engine.WithLogger(h.logger))

	ctx := context.Background()
	root, err := h.store.Root(ctx)
	if err != nil {
		return nil, fmt.Errorf("load root: %w", err)
	}

	result := NewResult()

	node, sum, opErr := h.engine.Import(ctx, root, seed)
	if node == nil {
		return nil, fmt.Errorf("import seed: %w", opErr)
	}
	result.Node = node.Path()

	if target != nil {
		if opErr != nil {
			return nil, fmt.Errorf("import seed: %w", opErr)
		}
		h.recorder.Reset()
		sum, opErr = h.engine.Reconcile(ctx, node, target)
	}
	result.Summary = sum
	result.Mutations = h.recorder.Mutations()

	h.checkError(scenario, opErr, result)

	for _, msg := range EvaluateAssertions(ctx, h.engine, node, result, scenario.Assertions) {
		result.AddError(msg)
	}

	// Export through the plain store so the export is not part of the trace.
	export, err := engine.New(st, engine.WithLogger(h.logger)).Serialize(ctx, node, false)
	if err != nil {
		return nil, fmt.Errorf("export seeded node: %w", err)
	}
	result.Export = export

	h.logger.Info("scenario complete",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"mutations", len(result.Mutations),
		"error_code", result.ErrorCode,
	)
	return result, nil
}

// checkError compares the operation's outcome with expect_error.
func (h *Harness) checkError(scenario *Scenario, opErr error, result *Result) {
	if opErr != nil {
		result.ErrorCode = string(engine.ErrorCode(opErr))
	}

	switch {
	case scenario.ExpectError == "" && opErr != nil:
		result.AddError(fmt.Sprintf("operation failed: %v", opErr))
	case scenario.ExpectError != "" && opErr == nil:
		result.AddError(fmt.Sprintf("expected error %s, operation succeeded", scenario.ExpectError))
	case scenario.ExpectError != "" && result.ErrorCode != scenario.ExpectError:
		result.AddError(fmt.Sprintf("expected error %s, got: %v", scenario.ExpectError, opErr))
	}
}
