package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/treesync/internal/document"
	"github.com/roach88/treesync/internal/schema"
)

// ValidationError is one problem found in a document.
type ValidationError struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Node    string `json:"node,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	File   string            `json:"file"`
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a document without touching the store",
		Long: `Check a JSON or YAML document against the canonical document schema
and check the references it contains.

Shape problems (unknown categories, wrong value types, bad pointer
limits) are reported with the position of the offending input.
Reference problems (unknown tags, member data for unlisted members,
duplicate members) are all reported.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, file string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
		return outputValidateError(formatter, ErrCodeNotFound, fmt.Sprintf("document not found: %s", file))
	}

	v, err := schema.New()
	if err != nil {
		return outputValidateError(formatter, ErrCodeGeneric, fmt.Sprintf("failed to compile document schema: %v", err))
	}

	formatter.VerboseLog("Checking shape of %s", file)
	if err := v.ValidateFile(file); err != nil {
		return outputValidationErrors(formatter, file, []ValidationError{shapeError(err)})
	}

	doc, err := document.Load(file)
	if err != nil {
		return outputValidateError(formatter, ErrCodeReadFailed, err.Error())
	}

	formatter.VerboseLog("Checking references in %s", file)
	findings := schema.Check(doc)
	if len(findings) > 0 {
		errs := make([]ValidationError, len(findings))
		for i, f := range findings {
			errs[i] = ValidationError{Code: f.Code, Field: f.Field, Message: f.Message, Node: f.Node}
		}
		return outputValidationErrors(formatter, file, errs)
	}

	return outputValidateSuccess(formatter, file)
}

// shapeError converts a schema error, keeping its position when it has one.
func shapeError(err error) ValidationError {
	var v *schema.Violation
	if errors.As(err, &v) {
		out := ValidationError{Code: ErrCodeShape, Field: v.Field, Message: v.Message}
		if v.Pos.IsValid() {
			out.Line = v.Pos.Line()
			out.Column = v.Pos.Column()
		}
		return out
	}
	return ValidationError{Code: ErrCodeShape, Field: "document", Message: err.Error()}
}

// outputValidateSuccess outputs a successful validation result.
func outputValidateSuccess(f *OutputFormatter, file string) error {
	if f.Format == "json" {
		return f.Success(ValidationResult{File: file, Valid: true})
	}
	fmt.Fprintf(f.Writer, "✓ %s is valid\n", file)
	return nil
}

// outputValidationErrors outputs validation errors in the configured format.
func outputValidationErrors(f *OutputFormatter, file string, errs []ValidationError) error {
	if f.Format == "json" {
		if err := writeValidationJSON(f.Writer, file, errs); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(f.Writer, "✗ %s: %d problem(s)\n", file, len(errs))
		for _, e := range errs {
			fmt.Fprintf(f.Writer, "  %s\n", formatValidationError(e))
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", errs[0].Code, errs[0].Message))
}

func writeValidationJSON(w io.Writer, file string, errs []ValidationError) error {
	return json.NewEncoder(w).Encode(CLIResponse{
		Status: "error",
		Data:   ValidationResult{File: file, Valid: false, Errors: errs},
		Error: &CLIError{
			Code:    errs[0].Code,
			Message: fmt.Sprintf("%d validation error(s)", len(errs)),
		},
	})
}

// formatValidationError renders one error as text.
func formatValidationError(e ValidationError) string {
	loc := ""
	switch {
	case e.Line > 0:
		loc = fmt.Sprintf("line %d:%d: ", e.Line, e.Column)
	case e.Node != "":
		loc = e.Node + ": "
	}
	return fmt.Sprintf("[%s] %s%s: %s", e.Code, loc, e.Field, e.Message)
}

// outputValidateError outputs a command error (not a validation failure).
func outputValidateError(f *OutputFormatter, code, message string) error {
	if err := f.Error(code, message, nil); err != nil {
		return err
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}
