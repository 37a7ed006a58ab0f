package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/treesync/internal/document"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Shallow bool
	Output  string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export [path]",
		Short: "Serialize a subtree to canonical JSON",
		Long: `Serialize the node at the given store path (the root when omitted)
and, unless --shallow, its whole subtree.

Pointer targets and set members are written as store paths. The output
is canonical JSON: equal subtrees always export to identical bytes.

Examples:
  treesync export
  treesync export /2 --shallow
  treesync export /2 -o model.json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runExport(opts, path, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Shallow, "shallow", false, "omit children")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the document to a file instead of stdout")

	return cmd
}

func runExport(opts *ExportOptions, path string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	st, eng, err := opts.openEngine(ctx)
	if err != nil {
		return formatter.Fail(GetExitCode(err), ErrCodeNotFound, "failed to open database", err)
	}
	defer st.Close()

	doc, err := eng.Export(ctx, path, opts.Shallow)
	if err != nil {
		return formatter.FailSync(fmt.Sprintf("failed to export %q", path), err)
	}

	if opts.Format == "json" && opts.Output == "" {
		return formatter.Success(doc)
	}

	data, err := document.EncodeIndent(doc)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, "failed to encode document", err)
	}
	if err := writeOutput(formatter, opts.Output, data); err != nil {
		return err
	}
	if opts.Output != "" {
		if opts.Format == "json" {
			return formatter.Success(map[string]string{"path": path, "output": opts.Output})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %s to %s\n", displayPath(path), opts.Output)
	}
	return nil
}

func displayPath(path string) string {
	if path == "" {
		return "<root>"
	}
	return path
}
