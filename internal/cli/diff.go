package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/roach88/treesync/internal/diff"
	"github.com/roach88/treesync/internal/document"
)

// DiffOptions holds flags for the diff command.
type DiffOptions struct {
	*RootOptions
	Node  string
	Patch bool // print an RFC 6902 patch
	Text  bool // print a line diff of the canonical JSON
}

// DiffResult is the plan for one node.
type DiffResult struct {
	Node    string        `json:"node"`
	Changes []diff.Change `json:"changes"`
}

// NewDiffCommand creates the diff command.
func NewDiffCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DiffOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "diff <file>",
		Short: "Show the changes apply would make to a node",
		Long: `Compare the fields of --node with the document and print the ordered
changes a reconcile would apply to the node itself. Children are not
compared and nothing is written.

Output modes:
  (default) - one put/delete per line
  --patch   - an RFC 6902 JSON patch against the node's fields
  --text    - a line diff of the canonical JSON of node and document

Examples:
  treesync diff model.json --node /2
  treesync diff model.json --node /2 --patch
  treesync diff model.json --node /2 --text`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Patch && opts.Text {
				return NewExitError(ExitCommandError, "--patch and --text are mutually exclusive")
			}
			return runDiff(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Node, "node", "", "store path of the node to compare (required)")
	_ = cmd.MarkFlagRequired("node")
	cmd.Flags().BoolVar(&opts.Patch, "patch", false, "print an RFC 6902 JSON patch")
	cmd.Flags().BoolVar(&opts.Text, "text", false, "print a line diff of the canonical JSON")

	return cmd
}

func runDiff(opts *DiffOptions, file string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	target, err := loadDocument(formatter, file)
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
	current, err := eng.Serialize(ctx, n, true)
	if err != nil {
		return formatter.FailSync("failed to serialize node", err)
	}
	changes := diff.Order(diff.Diff(current, target))

	switch {
	case opts.Patch:
		patch, err := diff.ToJSONPatch(current.Fields, changes)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeGeneric, "failed to build patch", err)
		}
		if opts.Format == "json" {
			return formatter.Success(json.RawMessage(patch))
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(patch))
		return nil

	case opts.Text:
		text, err := textDiff(current, target)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeGeneric, "failed to render diff", err)
		}
		if opts.Format == "json" {
			return formatter.Success(map[string]string{"node": n.Path(), "diff": text})
		}
		writeColoredDiff(cmd.OutOrStdout(), text)
		return nil
	}

	if opts.Format == "json" {
		return formatter.Success(DiffResult{Node: n.Path(), Changes: changes})
	}
	w := cmd.OutOrStdout()
	if len(changes) == 0 {
		fmt.Fprintln(w, "No changes.")
		return nil
	}
	for _, c := range changes {
		fmt.Fprintln(w, c.String())
	}
	fmt.Fprintf(w, "\n%d change(s)\n", len(changes))
	return nil
}

// textDiff returns a unified-style line diff between the indented canonical
// JSON of the fields of current and target. Ids and children are left out
// since apply does not compare them.
func textDiff(current, target *document.Document) (string, error) {
	from, err := fieldsJSON(current)
	if err != nil {
		return "", err
	}
	to, err := fieldsJSON(target)
	if err != nil {
		return "", err
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(from, to)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			out.WriteString(prefix)
			out.WriteString(line)
		}
	}
	return out.String(), nil
}

func fieldsJSON(d *document.Document) (string, error) {
	fields := &document.Document{Fields: d.Fields}
	data, err := document.EncodeIndent(fields)
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}

// writeColoredDiff prints insertions in green and deletions in red. Color
// follows color.NoColor, which is set when stdout is not a terminal.
func writeColoredDiff(w io.Writer, text string) {
	added := color.New(color.FgGreen).SprintFunc()
	removed := color.New(color.FgRed).SprintFunc()
	for _, line := range strings.SplitAfter(text, "\n") {
		switch {
		case strings.HasPrefix(line, "+ "):
			fmt.Fprint(w, added(line))
		case strings.HasPrefix(line, "- "):
			fmt.Fprint(w, removed(line))
		default:
			fmt.Fprint(w, line)
		}
	}
}
