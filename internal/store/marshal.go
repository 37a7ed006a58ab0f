package store

import (
	"fmt"

	"github.com/roach88/treesync/internal/ir"
)

// marshalValue converts a value to canonical JSON TEXT for storage.
// A nil value is stored as JSON null.
func marshalValue(v ir.IRValue) (string, error) {
	if v == nil {
		v = ir.IRNull{}
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("marshal value: %w", err)
	}
	return string(data), nil
}

// unmarshalValue parses stored JSON TEXT.
// Uses ir.UnmarshalIRValue, which keeps integers beyond 2^53 exact.
func unmarshalValue(data string) (ir.IRValue, error) {
	v, err := ir.UnmarshalIRValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return v, nil
}
