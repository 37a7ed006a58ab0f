package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/treesync/internal/ir"
)

// Snapshot captures what a scenario run did to the store.
// It is serialized as canonical JSON for deterministic comparison.
type Snapshot struct {
	ScenarioName string
	ErrorCode    string
	Result       *Result
}

// Value converts the snapshot to an IR object.
//
//	{"scenario_name": ..., "mutations": [{"op", "node", "args"}], "export": {...}, "error_code": ...}
func (s *Snapshot) Value() ir.IRObject {
	mutations := make(ir.IRArray, len(s.Result.Mutations))
	for i, m := range s.Result.Mutations {
		args := make(ir.IRArray, len(m.Args))
		for j, a := range m.Args {
			args[j] = ir.IRString(a)
		}
		mutations[i] = ir.IRObject{
			"op":   ir.IRString(m.Op),
			"node": ir.IRString(m.Node),
			"args": args,
		}
	}

	out := ir.IRObject{
		"scenario_name": ir.IRString(s.ScenarioName),
		"mutations":     mutations,
	}
	if s.Result.Export != nil {
		out["export"] = s.Result.Export.Value()
	}
	if s.ErrorCode != "" {
		out["error_code"] = ir.IRString(s.ErrorCode)
	}
	return out
}

// MarshalSnapshot returns the canonical JSON snapshot of a run.
func MarshalSnapshot(scenarioName string, result *Result) ([]byte, error) {
	snapshot := Snapshot{
		ScenarioName: scenarioName,
		ErrorCode:    result.ErrorCode,
		Result:       result,
	}
	return ir.MarshalCanonical(snapshot.Value())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
