package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	wetwire "github.com/lex00/wetwire-aws-catalog"
	"github.com/lex00/wetwire-aws-catalog/layer"
	"github.com/lex00/wetwire-aws-catalog/policy"
)

func newListCmd(g *globalFlags) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List permission bundles and layer recipes",
		Long: `List shows the eight permission bundles and six layer recipes without
registering anything or touching the layer sources.

Examples:
    wetwire-catalog list
    wetwire-catalog list --format json --region eu-west-1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, g, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func runList(cmd *cobra.Command, g *globalFlags, format string) error {
	p, err := g.load(cmd.Context())
	if err != nil {
		return err
	}

	result := wetwire.ListResult{
		Bundles: lo.Map(p.policies.Named(), func(nb policy.NamedBundle, _ int) wetwire.ListBundle {
			return wetwire.ListBundle{
				Name:      nb.Name,
				Effect:    string(nb.Bundle.Effect()),
				Actions:   nb.Bundle.Actions(),
				Resources: nb.Bundle.Resources(),
			}
		}),
		Layers: lo.Map(p.layers.Recipes(), func(r layer.Recipe, _ int) wetwire.ListLayer {
			return wetwire.ListLayer{
				ID:          r.ID,
				SourcePath:  r.SourcePath,
				Packaging:   r.Packaging.Kind.String(),
				Runtimes:    r.RuntimeNames(),
				Description: r.Description,
			}
		}),
	}

	return outputListResult(cmd.OutOrStdout(), result, format)
}

func outputListResult(w io.Writer, result wetwire.ListResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		fmt.Fprintf(w, "Permission bundles (%d):\n\n", len(result.Bundles))
		for _, b := range result.Bundles {
			fmt.Fprintf(w, "  %s: %s %s\n", b.Name, b.Effect, strings.Join(b.Actions, ", "))
			fmt.Fprintf(w, "    on %s\n", strings.Join(b.Resources, ", "))
		}

		fmt.Fprintf(w, "\nLayer recipes (%d):\n\n", len(result.Layers))
		for _, l := range result.Layers {
			fmt.Fprintf(w, "  %s: %s [%s, %s]\n", l.ID, l.SourcePath, l.Packaging, strings.Join(l.Runtimes, ", "))
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}
