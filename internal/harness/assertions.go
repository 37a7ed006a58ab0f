package harness

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/treesync/internal/engine"
	"github.com/roach88/treesync/internal/graph"
	"github.com/roach88/treesync/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type      string           // Assertion type for categorization
	Node      string           // Store path of the node checked, if any
	Expected  string           // Human-readable expected outcome
	Actual    string           // Human-readable actual outcome
	Mutations []graph.Mutation // Mutation trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s", e.Type)
	if e.Node != "" {
		fmt.Fprintf(&buf, " on %s", e.Node)
	}
	buf.WriteString("\n")

	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Mutations) > 0 {
		fmt.Fprintf(&buf, "\nMutations:\n")
		for i, m := range e.Mutations {
			fmt.Fprintf(&buf, "  [%d] %s %s %v\n", i+1, m.Op, m.Node, m.Args)
		}
	}

	return buf.String()
}

// EvaluateAssertions evaluates all assertions after a run.
// Node references are resolved through eng with seeded as scope.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(ctx context.Context, eng *engine.Engine, seeded graph.Node, result *Result, assertions []Assertion) []string {
	var failures []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertMutationCount:
			err = assertMutationCount(result.Mutations, assertion)
		case AssertAttributeEquals, AssertChildCount, AssertPointerTarget, AssertSetMembers:
			var n graph.Node
			n, err = resolveNode(ctx, eng, seeded, assertion.Node)
			if err != nil {
				err = fmt.Errorf("assertion[%d]: resolve node %q: %w", i, assertion.Node, err)
				break
			}
			err = assertNode(ctx, eng, seeded, n, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			failures = append(failures, err.Error())
		}
	}

	return failures
}

func resolveNode(ctx context.Context, eng *engine.Engine, seeded graph.Node, ref string) (graph.Node, error) {
	if ref == "" {
		return seeded, nil
	}
	return eng.ResolveOrFail(ctx, seeded, ref)
}

func assertNode(ctx context.Context, eng *engine.Engine, seeded, n graph.Node, a Assertion) error {
	switch a.Type {
	case AssertAttributeEquals:
		return assertAttributeEquals(ctx, eng.Store(), n, a)
	case AssertChildCount:
		return assertChildCount(ctx, eng.Store(), n, a)
	case AssertPointerTarget:
		return assertPointerTarget(ctx, eng, seeded, n, a)
	default:
		return assertSetMembers(ctx, eng, seeded, n, a)
	}
}

// assertAttributeEquals checks an attribute value. A nil expected value
// asserts the attribute is absent.
func assertAttributeEquals(ctx context.Context, s graph.Store, n graph.Node, a Assertion) error {
	got, ok, err := s.Attribute(ctx, n, a.Name)
	if err != nil {
		return fmt.Errorf("read attribute %q of %s: %w", a.Name, n.Path(), err)
	}

	if a.Value == nil {
		if ok {
			return &AssertionError{
				Type:     AssertAttributeEquals,
				Node:     n.Path(),
				Expected: fmt.Sprintf("attribute %q absent", a.Name),
				Actual:   fmt.Sprintf("%q = %s", a.Name, canonical(got)),
			}
		}
		return nil
	}

	want, err := ir.FromGo(a.Value)
	if err != nil {
		return fmt.Errorf("attribute_equals value: %w", err)
	}
	if !ok {
		return &AssertionError{
			Type:     AssertAttributeEquals,
			Node:     n.Path(),
			Expected: fmt.Sprintf("%q = %s", a.Name, canonical(want)),
			Actual:   "attribute not set",
		}
	}
	if !ir.Equal(got, want) {
		return &AssertionError{
			Type:     AssertAttributeEquals,
			Node:     n.Path(),
			Expected: fmt.Sprintf("%q = %s", a.Name, canonical(want)),
			Actual:   fmt.Sprintf("%q = %s", a.Name, canonical(got)),
		}
	}
	return nil
}

func assertChildCount(ctx context.Context, s graph.Store, n graph.Node, a Assertion) error {
	children, err := s.LoadChildren(ctx, n)
	if err != nil {
		return fmt.Errorf("load children of %s: %w", n.Path(), err)
	}
	if len(children) != *a.Count {
		paths := make([]string, len(children))
		for i, c := range children {
			paths[i] = c.Path()
		}
		return &AssertionError{
			Type:     AssertChildCount,
			Node:     n.Path(),
			Expected: fmt.Sprintf("%d children", *a.Count),
			Actual:   fmt.Sprintf("%d children %v", len(children), paths),
		}
	}
	return nil
}

// assertPointerTarget checks a pointer's target. An empty target asserts a
// pointer without a target or no pointer at all.
func assertPointerTarget(ctx context.Context, eng *engine.Engine, seeded, n graph.Node, a Assertion) error {
	got, ok, err := eng.Store().PointerPath(ctx, n, a.Name)
	if errors.Is(err, graph.ErrNotFound) {
		got, ok, err = "", false, nil
	}
	if err != nil {
		return &AssertionError{
			Type:     AssertPointerTarget,
			Node:     n.Path(),
			Expected: fmt.Sprintf("pointer %q", a.Name),
			Actual:   fmt.Sprintf("read error: %v", err),
		}
	}

	want := ""
	if a.Target != "" {
		if want, err = eng.ResolveCanonicalID(ctx, seeded, a.Target); err != nil {
			return fmt.Errorf("resolve pointer target %q: %w", a.Target, err)
		}
	}
	if !ok {
		got = ""
	}
	if got != want {
		return &AssertionError{
			Type:     AssertPointerTarget,
			Node:     n.Path(),
			Expected: fmt.Sprintf("%q -> %s", a.Name, describeTarget(want)),
			Actual:   fmt.Sprintf("%q -> %s", a.Name, describeTarget(got)),
		}
	}
	return nil
}

func assertSetMembers(ctx context.Context, eng *engine.Engine, seeded, n graph.Node, a Assertion) error {
	got, err := eng.Store().MemberPaths(ctx, n, a.Set)
	if err != nil {
		return &AssertionError{
			Type:     AssertSetMembers,
			Node:     n.Path(),
			Expected: fmt.Sprintf("set %q", a.Set),
			Actual:   fmt.Sprintf("read error: %v", err),
		}
	}

	want := make([]string, len(a.Members))
	for i, ref := range a.Members {
		if want[i], err = eng.ResolveCanonicalID(ctx, seeded, ref); err != nil {
			return fmt.Errorf("resolve member %q: %w", ref, err)
		}
	}

	if strings.Join(got, ",") != strings.Join(want, ",") || len(got) != len(want) {
		return &AssertionError{
			Type:     AssertSetMembers,
			Node:     n.Path(),
			Expected: fmt.Sprintf("%q = %v", a.Set, want),
			Actual:   fmt.Sprintf("%q = %v", a.Set, got),
		}
	}
	return nil
}

// assertMutationCount counts recorded mutations, optionally of one op.
func assertMutationCount(mutations []graph.Mutation, a Assertion) error {
	count := 0
	for _, m := range mutations {
		if a.Op == "" || m.Op == a.Op {
			count++
		}
	}

	if count != *a.Count {
		what := "mutations"
		if a.Op != "" {
			what = a.Op + " mutations"
		}
		return &AssertionError{
			Type:      AssertMutationCount,
			Expected:  fmt.Sprintf("%d %s", *a.Count, what),
			Actual:    fmt.Sprintf("%d %s", count, what),
			Mutations: mutations,
		}
	}
	return nil
}

func canonical(v ir.IRValue) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func describeTarget(path string) string {
	if path == "" {
		return "<no target>"
	}
	return path
}
