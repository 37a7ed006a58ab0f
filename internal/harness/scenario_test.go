package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/treesync/internal/document"
	"github.com/roach88/treesync/internal/ir"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	scenarioPath := filepath.Join(dir, "test.yaml")

	content := `
name: test_scenario
description: "Test scenario for validation"
seed:
  attributes:
    name: Box
target:
  attributes:
    name: Box
    color: red
  children:
    - id: "@name:A"
assertions:
  - type: attribute_equals
    name: color
    value: red
  - type: child_count
    count: 1
`
	require.NoError(t, os.WriteFile(scenarioPath, []byte(content), 0644))

	scenario, err := LoadScenario(scenarioPath)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	require.Len(t, scenario.Assertions, 2)
	assert.Equal(t, AssertAttributeEquals, scenario.Assertions[0].Type)
	assert.Equal(t, "red", scenario.Assertions[0].Value)
	require.NotNil(t, scenario.Assertions[1].Count)
	assert.Equal(t, 1, *scenario.Assertions[1].Count)

	target, err := scenario.TargetDocument()
	require.NoError(t, err)
	require.NotNil(t, target)
	assert.Equal(t, ir.IRString("red"), target.Category(document.Attributes)["color"])
	require.Len(t, target.Children, 1)
	assert.Equal(t, "@name:A", target.Children[0].ID)
}

func TestLoadScenario_FileNotFound(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_UnknownFieldRejected(t *testing.T) {
	content := `
name: test
description: "typo in assertions"
seed: {}
asertions:
  - type: child_count
    count: 0
`
	_, err := ParseScenario([]byte(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_TargetOptional(t *testing.T) {
	content := `
name: import
description: "seed only"
seed:
  attributes: { name: Box }
assertions:
  - type: child_count
    count: 0
`
	scenario, err := ParseScenario([]byte(content))
	require.NoError(t, err)

	target, err := scenario.TargetDocument()
	require.NoError(t, err)
	assert.Nil(t, target)

	seed, err := scenario.SeedDocument()
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("Box"), seed.Category(document.Attributes)["name"])
}

func TestParseScenario_ExpectErrorWithoutAssertions(t *testing.T) {
	content := `
name: failing
description: "reference to nothing"
seed: {}
target:
  pointers: { ref: "@name:Nope" }
expect_error: REFERENCE_NOT_FOUND
`
	scenario, err := ParseScenario([]byte(content))
	require.NoError(t, err)
	assert.Equal(t, "REFERENCE_NOT_FOUND", scenario.ExpectError)
	assert.Empty(t, scenario.Assertions)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing name",
			content: `
description: "d"
seed: {}
assertions: [{type: child_count, count: 0}]
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			content: `
name: n
seed: {}
assertions: [{type: child_count, count: 0}]
`,
			wantErr: "description is required",
		},
		{
			name: "missing seed",
			content: `
name: n
description: "d"
assertions: [{type: child_count, count: 0}]
`,
			wantErr: "seed is required",
		},
		{
			name: "seed children not a list",
			content: `
name: n
description: "d"
seed: { children: 3 }
assertions: [{type: child_count, count: 0}]
`,
			wantErr: "seed:",
		},
		{
			name: "target id not a string",
			content: `
name: n
description: "d"
seed: {}
target: { id: 7 }
assertions: [{type: child_count, count: 0}]
`,
			wantErr: "target:",
		},
		{
			name: "unknown error code",
			content: `
name: n
description: "d"
seed: {}
expect_error: EXPLODED
`,
			wantErr: `unknown error code "EXPLODED"`,
		},
		{
			name: "no assertions",
			content: `
name: n
description: "d"
seed: {}
`,
			wantErr: "assertions list is required",
		},
		{
			name: "missing type",
			content: `
name: n
description: "d"
seed: {}
assertions: [{name: x}]
`,
			wantErr: "assertions[0]: type is required",
		},
		{
			name: "unknown type",
			content: `
name: n
description: "d"
seed: {}
assertions: [{type: trace_contains}]
`,
			wantErr: `unknown assertion type "trace_contains"`,
		},
		{
			name: "attribute_equals without name",
			content: `
name: n
description: "d"
seed: {}
assertions: [{type: attribute_equals, value: 1}]
`,
			wantErr: "name is required for attribute_equals",
		},
		{
			name: "child_count without count",
			content: `
name: n
description: "d"
seed: {}
assertions: [{type: child_count}]
`,
			wantErr: "count is required for child_count",
		},
		{
			name: "negative mutation_count",
			content: `
name: n
description: "d"
seed: {}
assertions: [{type: mutation_count, count: -1}]
`,
			wantErr: "count must be non-negative for mutation_count",
		},
		{
			name: "pointer_target without name",
			content: `
name: n
description: "d"
seed: {}
assertions: [{type: pointer_target, target: "@name:A"}]
`,
			wantErr: "name is required for pointer_target",
		},
		{
			name: "set_members without set",
			content: `
name: n
description: "d"
seed: {}
assertions: [{type: set_members, members: []}]
`,
			wantErr: "set is required for set_members",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_TestdataFiles(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			_, err := LoadScenario(file)
			require.NoError(t, err)
		})
	}
}
