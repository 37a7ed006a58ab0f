package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/treesync/internal/document"
	"github.com/roach88/treesync/internal/engine"
	"github.com/roach88/treesync/internal/graph"
	"github.com/roach88/treesync/internal/testutil"
)

// seeded imports doc under the root of a fresh store and returns an engine
// on that store together with the new node.
func seeded(t *testing.T, doc string) (*engine.Engine, graph.Node) {
	t.Helper()
	ctx := context.Background()

	st := testutil.OpenStore(t)
	eng := engine.New(st)
	root, err := st.Root(ctx)
	require.NoError(t, err)

	d, err := document.Decode([]byte(doc))
	require.NoError(t, err)
	n, _, err := eng.Import(ctx, root, d)
	require.NoError(t, err)
	return eng, n
}

const assertionDoc = `{
	"attributes": {"name": "Top", "size": 3},
	"pointers": {"first": "@name:A", "none": null},
	"sets": {"kids": ["@name:B", "@name:A"]},
	"children": [
		{"id": "@name:A", "attributes": {"name": "A"}},
		{"id": "@name:B", "attributes": {"name": "B"}}
	]
}`

func evaluate(t *testing.T, a Assertion, mutations ...graph.Mutation) []string {
	t.Helper()
	eng, n := seeded(t, assertionDoc)
	result := NewResult()
	result.Mutations = append(result.Mutations, mutations...)
	return EvaluateAssertions(context.Background(), eng, n, result, []Assertion{a})
}

func TestEvaluateAssertions_AttributeEquals(t *testing.T) {
	tests := []struct {
		name    string
		a       Assertion
		wantErr string
	}{
		{"string value", Assertion{Type: AssertAttributeEquals, Name: "name", Value: "Top"}, ""},
		{"integer value", Assertion{Type: AssertAttributeEquals, Name: "size", Value: 3}, ""},
		{"on child", Assertion{Type: AssertAttributeEquals, Node: "@name:B", Name: "name", Value: "B"}, ""},
		{"absent", Assertion{Type: AssertAttributeEquals, Name: "color"}, ""},
		{"inherited name", Assertion{Type: AssertAttributeEquals, Node: "/1", Name: "name", Value: "FCO"}, ""},
		{"wrong value", Assertion{Type: AssertAttributeEquals, Name: "size", Value: 4}, `Expected: "size" = 4`},
		{"not set", Assertion{Type: AssertAttributeEquals, Name: "color", Value: "red"}, "attribute not set"},
		{"present but expected absent", Assertion{Type: AssertAttributeEquals, Name: "name"}, `attribute "name" absent`},
		{"unresolved node", Assertion{Type: AssertAttributeEquals, Node: "@name:Nope", Name: "name"}, `resolve node "@name:Nope"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := evaluate(t, tt.a)
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.wantErr)
		})
	}
}

func TestEvaluateAssertions_ChildCount(t *testing.T) {
	assert.Empty(t, evaluate(t, Assertion{Type: AssertChildCount, Count: intPtr(2)}))
	assert.Empty(t, evaluate(t, Assertion{Type: AssertChildCount, Node: "@name:A", Count: intPtr(0)}))

	errs := evaluate(t, Assertion{Type: AssertChildCount, Count: intPtr(1)})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Expected: 1 children")
	assert.Contains(t, errs[0], "Actual: 2 children [/2/3 /2/4]")
}

func TestEvaluateAssertions_PointerTarget(t *testing.T) {
	assert.Empty(t, evaluate(t, Assertion{Type: AssertPointerTarget, Name: "first", Target: "@name:A"}))
	assert.Empty(t, evaluate(t, Assertion{Type: AssertPointerTarget, Name: "first", Target: "/2/3"}))
	assert.Empty(t, evaluate(t, Assertion{Type: AssertPointerTarget, Name: "none"}))
	assert.Empty(t, evaluate(t, Assertion{Type: AssertPointerTarget, Name: "missing"}))

	errs := evaluate(t, Assertion{Type: AssertPointerTarget, Name: "first", Target: "@name:B"})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], `Expected: "first" -> /2/4`)
	assert.Contains(t, errs[0], `Actual: "first" -> /2/3`)

	errs = evaluate(t, Assertion{Type: AssertPointerTarget, Name: "none", Target: "@name:A"})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], `Actual: "none" -> <no target>`)
}

func TestEvaluateAssertions_SetMembers(t *testing.T) {
	assert.Empty(t, evaluate(t, Assertion{Type: AssertSetMembers, Set: "kids", Members: []string{"@name:B", "@name:A"}}))

	errs := evaluate(t, Assertion{Type: AssertSetMembers, Set: "kids", Members: []string{"@name:A", "@name:B"}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], `Expected: "kids" = [/2/3 /2/4]`)
	assert.Contains(t, errs[0], `Actual: "kids" = [/2/4 /2/3]`)

	errs = evaluate(t, Assertion{Type: AssertSetMembers, Set: "kids", Members: []string{"@name:Nope"}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], `resolve member "@name:Nope"`)
}

func TestEvaluateAssertions_MutationCount(t *testing.T) {
	mutations := []graph.Mutation{
		{Op: "SetAttribute", Node: "/2", Args: []string{"name", `"Top"`}},
		{Op: "SetAttribute", Node: "/2", Args: []string{"size", "3"}},
		{Op: "DeleteNode", Node: "/2/4"},
	}

	assert.Empty(t, evaluate(t, Assertion{Type: AssertMutationCount, Count: intPtr(3)}, mutations...))
	assert.Empty(t, evaluate(t, Assertion{Type: AssertMutationCount, Op: "SetAttribute", Count: intPtr(2)}, mutations...))
	assert.Empty(t, evaluate(t, Assertion{Type: AssertMutationCount, Op: "CreateSet", Count: intPtr(0)}, mutations...))

	errs := evaluate(t, Assertion{Type: AssertMutationCount, Op: "DeleteNode", Count: intPtr(2)}, mutations...)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Expected: 2 DeleteNode mutations")
	assert.Contains(t, errs[0], "Actual: 1 DeleteNode mutations")
	assert.Contains(t, errs[0], "[3] DeleteNode /2/4")
}

func TestEvaluateAssertions_UnknownType(t *testing.T) {
	errs := evaluate(t, Assertion{Type: "trace_contains"})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], `unknown assertion type "trace_contains"`)
}

func TestAssertionError_Error(t *testing.T) {
	err := &AssertionError{
		Type:     AssertChildCount,
		Node:     "/2",
		Expected: "1 children",
		Actual:   "0 children []",
	}
	assert.Equal(t, "Assertion failed: child_count on /2\n  Expected: 1 children\n  Actual: 0 children []\n", err.Error())
}
