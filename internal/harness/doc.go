// Package harness runs reconcile scenarios against a fresh store.
//
// The harness seeds a store from one document, reconciles the seeded node
// against a second document and checks assertions on the result.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	seed:
//	  attributes: { name: Box, color: red }
//	  children:
//	    - id: "@name:A"
//	      attributes: { name: A }
//	target:
//	  attributes: { name: Box, color: blue }
//	  children:
//	    - id: "@name:A"
//	expect_error: REFERENCE_NOT_FOUND   # optional
//	assertions:
//	  - type: attribute_equals
//	    name: color
//	    value: blue
//	  - type: child_count
//	    count: 1
//
// The seed is imported under the root as a new node. When target is present
// the seeded node is reconciled against it; otherwise the import itself is
// the operation under test.
//
// # Assertion Types
//
//   - attribute_equals: the attribute value of a node, inherited values
//     included (a null value asserts the attribute is absent)
//   - child_count: the number of direct children of a node
//   - pointer_target: the store path a pointer targets ("" for no target)
//   - set_members: the members of a set, in order
//   - mutation_count: the number of mutating store calls made by the
//     operation under test, optionally filtered by op
//
// Every assertion except mutation_count takes an optional node reference,
// resolved with the seeded node as scope. An empty node is the seeded node.
//
// # Deterministic Testing
//
// Each run uses an in-memory SQLite database and sequential guids (g1, g2,
// ...), so node paths, guids and mutation traces are identical across runs
// and can be compared against golden files.
package harness
