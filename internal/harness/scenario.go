package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/treesync/internal/document"
	"github.com/roach88/treesync/internal/engine"
	"github.com/roach88/treesync/internal/ir"
)

// Scenario defines one reconcile test.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Seed is the document imported under the root before the test.
	Seed map[string]any `yaml:"seed"`

	// Target is the document the seeded node is reconciled against.
	// If nil, the seed import is the operation under test.
	Target map[string]any `yaml:"target,omitempty"`

	// ExpectError is the SyncErrorCode the operation must fail with.
	// Empty means the operation must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Assertions are checked after the operation, whether or not it failed.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion checks one fact about the store after the operation.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Node is a reference resolved with the seeded node as scope.
	// Empty means the seeded node.
	Node string `yaml:"node,omitempty"`

	// Name is the attribute or pointer name.
	Name string `yaml:"name,omitempty"`

	// Value is the expected attribute value (attribute_equals).
	Value any `yaml:"value,omitempty"`

	// Target is the expected pointer target reference (pointer_target).
	Target string `yaml:"target,omitempty"`

	// Set and Members describe the expected set contents (set_members).
	Set     string   `yaml:"set,omitempty"`
	Members []string `yaml:"members,omitempty"`

	// Count is the expected count (child_count, mutation_count).
	Count *int `yaml:"count,omitempty"`

	// Op filters mutation_count to one store operation (e.g. SetAttribute).
	Op string `yaml:"op,omitempty"`
}

// Assertion type constants.
const (
	AssertAttributeEquals = "attribute_equals"
	AssertChildCount      = "child_count"
	AssertPointerTarget   = "pointer_target"
	AssertSetMembers      = "set_members"
	AssertMutationCount   = "mutation_count"
)

var knownErrorCodes = []engine.SyncErrorCode{
	engine.ErrCodeReferenceNotFound,
	engine.ErrCodeUnknownReferenceTag,
	engine.ErrCodeUnsupportedCategory,
	engine.ErrCodeUnsupportedShape,
	engine.ErrCodeConsistencyViolation,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// SeedDocument decodes the seed.
func (s *Scenario) SeedDocument() (*document.Document, error) {
	return toDocument(s.Seed)
}

// TargetDocument decodes the target, or returns nil when there is none.
func (s *Scenario) TargetDocument() (*document.Document, error) {
	if s.Target == nil {
		return nil, nil
	}
	return toDocument(s.Target)
}

func toDocument(m map[string]any) (*document.Document, error) {
	v, err := ir.FromGo(m)
	if err != nil {
		return nil, err
	}
	return document.FromValue(v)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Seed == nil {
		return fmt.Errorf("seed is required (use {} for an empty node)")
	}
	if _, err := s.SeedDocument(); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if _, err := s.TargetDocument(); err != nil {
		return fmt.Errorf("target: %w", err)
	}

	if s.ExpectError != "" && !isKnownErrorCode(s.ExpectError) {
		return fmt.Errorf("expect_error: unknown error code %q", s.ExpectError)
	}

	if len(s.Assertions) == 0 && s.ExpectError == "" {
		return fmt.Errorf("assertions list is required unless expect_error is set")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertAttributeEquals:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for attribute_equals", index)
		}
	case AssertChildCount, AssertMutationCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for %s", index, a.Type)
		}
		if *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertPointerTarget:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for pointer_target", index)
		}
	case AssertSetMembers:
		if a.Set == "" {
			return fmt.Errorf("assertions[%d]: set is required for set_members", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

func isKnownErrorCode(code string) bool {
	for _, c := range knownErrorCodes {
		if string(c) == code {
			return true
		}
	}
	return false
}
