package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/treesync/internal/document"
	"github.com/roach88/treesync/internal/schema"
)

// loadDocument reads a document file and checks it before it reaches the
// engine: the file must exist, match #Document and pass the reference
// checks. Failures are reported through f.
func loadDocument(f *OutputFormatter, path string) (*document.Document, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("document not found: %s", path), nil)
	}

	v, err := schema.New()
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeGeneric, "failed to compile document schema", err)
	}
	if err := v.ValidateFile(path); err != nil {
		return nil, f.Fail(ExitFailure, ErrCodeShape, "document does not match schema", err)
	}

	doc, err := document.Load(path)
	if err != nil {
		return nil, f.Fail(ExitFailure, ErrCodeReadFailed, "failed to read document", err)
	}
	f.VerboseLog("Loaded %s (%d children)", path, len(doc.Children))

	if findings := schema.Check(doc); len(findings) > 0 {
		if err := f.Error(ErrCodeReference, fmt.Sprintf("%d reference problem(s) in %s", len(findings), path), findings); err != nil {
			return nil, err
		}
		return nil, WrapExitError(ExitFailure, "reference check failed", findings[0])
	}
	return doc, nil
}

// writeOutput writes data to path, or to the formatter's writer when path is
// empty.
func writeOutput(f *OutputFormatter, path string, data []byte) error {
	if path == "" {
		_, err := fmt.Fprintln(f.Writer, string(data))
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return f.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("failed to write %s", path), err)
	}
	return nil
}
