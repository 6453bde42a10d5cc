package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lex00/wetwire-aws-catalog/internal/differ"
)

type diffOptions struct {
	outputFormat string
	ignoreOrder  bool
	exitCode     bool
	sel          selection
}

// errChanges is returned with --exit-code when the templates differ.
var errChanges = fmt.Errorf("templates differ")

// newDiffCmd creates the "diff" subcommand comparing a deployed template
// against a fresh synthesis.
func newDiffCmd(g *globalFlags) *cobra.Command {
	var opts diffOptions

	cmd := &cobra.Command{
		Use:   "diff <template>",
		Short: "Compare a saved template with the current synthesis",
		Long: `Diff synthesizes the template exactly as build does and compares it with
a previously built template (JSON or YAML). Layers whose sources or packaging
changed show up as "Content modified".

Examples:
    wetwire-catalog diff template.json
    wetwire-catalog diff template.yaml --format json --exit-code`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd, g, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&opts.ignoreOrder, "ignore-order", false, "Ignore array element order")
	cmd.Flags().BoolVar(&opts.exitCode, "exit-code", false, "Fail when the templates differ")
	opts.sel.register(cmd)

	return cmd
}

func runDiff(cmd *cobra.Command, g *globalFlags, previousPath string, opts diffOptions) error {
	previous, err := differ.LoadTemplate(previousPath)
	if err != nil {
		return fmt.Errorf("loading %s: %w", previousPath, err)
	}

	current, _, err := g.synth(cmd.Context(), opts.sel)
	if err != nil {
		return err
	}

	result, err := differ.Compare(previous, current, differ.Options{IgnoreOrder: opts.ignoreOrder})
	if err != nil {
		return err
	}

	if err := outputDiffResult(cmd.OutOrStdout(), result, opts.outputFormat); err != nil {
		return err
	}

	if opts.exitCode && result.Summary.Total > 0 {
		return errChanges
	}
	return nil
}

func outputDiffResult(w io.Writer, result *differ.Result, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if result.Summary.Total == 0 {
			fmt.Fprintln(w, "No changes")
			return nil
		}
		for _, e := range result.Diff.Added {
			fmt.Fprintf(w, "+ %s (%s)\n", e.Resource, e.Type)
		}
		for _, e := range result.Diff.Removed {
			fmt.Fprintf(w, "- %s (%s)\n", e.Resource, e.Type)
		}
		for _, e := range result.Diff.Modified {
			fmt.Fprintf(w, "~ %s (%s)\n", e.Resource, e.Type)
			for _, c := range e.Changes {
				fmt.Fprintf(w, "    %s\n", c)
			}
		}
		fmt.Fprintf(w, "\n%d added, %d removed, %d modified\n",
			result.Summary.Added, result.Summary.Removed, result.Summary.Modified)

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}
