package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	Node string
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply <file>",
		Short: "Reconcile a node against a document",
		Long: `Mutate the subtree rooted at --node until it serializes to the
document, ignoring ids and child order.

Children in the document are matched by reference (store path,
@name:, @meta: or guid) with the node as scope; unmatched children
are created and existing children the document does not list are
deleted. The first error stops the reconcile and leaves earlier
changes in place.

Exit codes:
  0 - Reconciled
  1 - Invalid document or reconcile error
  2 - Command error (database or node not found)

Examples:
  treesync apply model.json --node /2
  treesync apply model.json --node /2 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Node, "node", "", "store path of the node to reconcile (required)")
	_ = cmd.MarkFlagRequired("node")

	return cmd
}

func runApply(opts *ApplyOptions, file string, cmd *cobra.Command) error {
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

	n, err := eng.Node(ctx, opts.Node)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("node %q not found", opts.Node), err)
	}

	sum, err := eng.Reconcile(ctx, n, doc)
	if err != nil {
		return formatter.FailSync(fmt.Sprintf("failed to apply %s", file), err)
	}

	return outputSync(formatter, "Applied", SyncResult{Node: n.Path(), GUID: n.GUID(), Summary: sum})
}
