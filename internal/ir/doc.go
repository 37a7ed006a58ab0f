// Package ir provides the JSON value model shared by every other package.
//
// This package contains value types and pure helpers only. All other internal
// packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - IRValue is sealed: null, string, int, float, bool, array, object
//   - Integers stay int64 end to end; floats must be finite
//   - MarshalCanonical is the only encoding used for storage, comparison and
//     golden files (RFC 8785 key order, NFC strings, no HTML escaping)
//   - Key paths (Path, Segment) address nested values by key or index
package ir
