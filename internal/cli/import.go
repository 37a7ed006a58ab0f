package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/treesync/internal/engine"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Parent string
}

// SyncResult describes what an import or apply did.
type SyncResult struct {
	Node    string         `json:"node"`
	GUID    string         `json:"guid"`
	Summary engine.Summary `json:"summary"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Create a new subtree from a document",
		Long: `Create a new child of --parent (the root by default) and reconcile it
against the document. JSON and YAML documents are accepted; the
document is validated before anything is written.

Examples:
  treesync import model.json
  treesync import model.yaml --parent /2`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Parent, "parent", "", "store path of the parent node (default: root)")

	return cmd
}

func runImport(opts *ImportOptions, file string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	doc, err := loadDocument(formatter, file)
	if err != nil {
		return err
	}

	st, eng, err := opts.openEngine(ctx)
	if err != nil {
		return formatter.Fail(GetExitCode(err), ErrCodeNotFound, "failed to open database", err)
	}
	defer st.Close()

	parent, err := eng.Node(ctx, opts.Parent)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("parent %q not found", opts.Parent), err)
	}

	n, sum, err := eng.Import(ctx, parent, doc)
	if err != nil {
		return formatter.FailSync(fmt.Sprintf("failed to import %s", file), err)
	}

	return outputSync(formatter, "Imported", SyncResult{Node: n.Path(), GUID: n.GUID(), Summary: sum})
}

// outputSync reports a successful import or apply.
func outputSync(f *OutputFormatter, verb string, result SyncResult) error {
	if f.Format == "json" {
		return f.Success(result)
	}
	fmt.Fprintf(f.Writer, "✓ %s %s (%s)\n", verb, result.Node, result.GUID)
	fmt.Fprintf(f.Writer, "  %d node(s), %d change(s), %d created, %d deleted\n",
		result.Summary.Nodes, result.Summary.Changes, result.Summary.Created, result.Summary.Deleted)
	return nil
}
