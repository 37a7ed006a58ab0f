package document

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/treesync/internal/ir"
)

// Encode returns the canonical JSON bytes of d.
func Encode(d *Document) ([]byte, error) {
	return ir.MarshalCanonical(d.Value())
}

// EncodeIndent returns canonical JSON of d, indented for humans.
func EncodeIndent(d *Document) ([]byte, error) {
	return ir.MarshalIndent(d.Value(), "  ")
}

// MarshalJSON implements json.Marshaler with canonical output.
func (d *Document) MarshalJSON() ([]byte, error) {
	return Encode(d)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Document) UnmarshalJSON(data []byte) error {
	doc, err := Decode(data)
	if err != nil {
		return err
	}
	*d = *doc
	return nil
}

// Decode parses a JSON document.
func Decode(data []byte) (*Document, error) {
	v, err := ir.UnmarshalIRValue(data)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return FromValue(v)
}

// DecodeYAML parses a YAML document with the same shape as the JSON form.
func DecodeYAML(data []byte) (*Document, error) {
	var raw any
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse YAML document: %w", err)
	}
	v, err := ir.FromGo(raw)
	if err != nil {
		return nil, fmt.Errorf("convert YAML document: %w", err)
	}
	return FromValue(v)
}

// Load reads a document file. Files ending in .yaml or .yml are parsed as
// YAML, anything else as JSON.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document file: %w", err)
	}
	if IsYAML(path) {
		return DecodeYAML(data)
	}
	return Decode(data)
}

// IsYAML reports whether path names a YAML file.
func IsYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
