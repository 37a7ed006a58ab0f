// Package schema validates the shape of canonical documents before they reach
// the engine.
//
// The shape is an embedded CUE definition (#Document). Validation compiles the
// input with the CUE Go API, unifies it with the definition and reports the
// first violation with the position of the offending input.
//
// Shape validation is a CLI concern. The engine accepts any decoded document
// and reports unsupported changes itself.
package schema

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cuejson "cuelang.org/go/encoding/json"
	cueyaml "cuelang.org/go/encoding/yaml"

	"github.com/roach88/treesync/internal/document"
)

//go:embed document.cue
var documentSchema string

// Violation describes why a document does not match #Document.
type Violation struct {
	// Field is the dotted path of the offending value, or "cue" for errors
	// without a path.
	Field   string
	Message string
	Pos     token.Pos
}

// Error implements the error interface.
func (e *Violation) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validator holds a compiled #Document definition.
// A Validator is not safe for concurrent use.
type Validator struct {
	ctx *cue.Context
	def cue.Value
}

// New compiles the embedded schema.
func New() (*Validator, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(documentSchema, cue.Filename("document.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile document schema: %w", err)
	}
	def := v.LookupPath(cue.ParsePath("#Document"))
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("lookup #Document: %w", err)
	}
	return &Validator{ctx: ctx, def: def}, nil
}

// Validate checks JSON data against #Document. filename is only used in
// positions.
func (v *Validator) Validate(filename string, data []byte) error {
	expr, err := cuejson.Extract(filename, data)
	if err != nil {
		return formatCUEError(err, filename)
	}
	return v.check(v.ctx.BuildExpr(expr), filename)
}

// ValidateYAML checks YAML data against #Document.
func (v *Validator) ValidateYAML(filename string, data []byte) error {
	f, err := cueyaml.Extract(filename, data)
	if err != nil {
		return formatCUEError(err, filename)
	}
	return v.check(v.ctx.BuildFile(f), filename)
}

// ValidateFile reads path and validates it as YAML when its extension says
// so, JSON otherwise.
func (v *Validator) ValidateFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if document.IsYAML(path) {
		return v.ValidateYAML(path, data)
	}
	return v.Validate(path, data)
}

func (v *Validator) check(doc cue.Value, filename string) error {
	if err := doc.Err(); err != nil {
		return formatCUEError(err, filename)
	}
	unified := v.def.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err, filename)
	}
	return nil
}

// Validate checks JSON data against a freshly compiled schema.
func Validate(filename string, data []byte) error {
	v, err := New()
	if err != nil {
		return err
	}
	return v.Validate(filename, data)
}

// formatCUEError converts the first CUE error into a Violation, preferring a
// position inside the validated input over one inside the schema.
func formatCUEError(err error, filename string) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	format, args := first.Msg()
	viol := &Violation{Field: fieldPath(first.Path()), Message: fmt.Sprintf(format, args...)}

	for _, pos := range errors.Positions(first) {
		if pos.Filename() == filename {
			viol.Pos = pos
			break
		}
		if !viol.Pos.IsValid() {
			viol.Pos = pos
		}
	}
	return viol
}

// fieldPath joins a CUE error path, dropping the schema definition label that
// prefixes errors raised while unifying with #Document.
func fieldPath(p []string) string {
	if len(p) > 0 && strings.HasPrefix(p[0], "#") {
		p = p[1:]
	}
	if len(p) == 0 {
		return "document"
	}
	return strings.Join(p, ".")
}
