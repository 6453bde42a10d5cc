package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lex00/wetwire-aws-catalog/internal/graph"
)

type graphOptions struct {
	outputFormat    string
	clusterByType   bool
	includeAssets   bool
	includeServices bool
	includeOutputs  bool
	sel             selection
}

func newGraphCmd(g *globalFlags) *cobra.Command {
	var opts graphOptions

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Generate DOT graph of the synthesized template",
		Long: `Generate a DOT or Mermaid format graph of the synthesized template.

The output can be rendered with Graphviz:
    wetwire-catalog graph | dot -Tpng -o catalog.png

Or used in GitHub markdown (Mermaid format):
    wetwire-catalog graph -f mermaid

Examples:
    wetwire-catalog graph --assets            # link layers to their source directories
    wetwire-catalog graph --services          # link policies to the services they grant
    wetwire-catalog graph --cluster           # cluster by service`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd, g, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.outputFormat, "format", "f", "dot", "Output format: dot or mermaid")
	cmd.Flags().BoolVar(&opts.clusterByType, "cluster", false, "Cluster resources by AWS service")
	cmd.Flags().BoolVar(&opts.includeAssets, "assets", false, "Include layer source directories")
	cmd.Flags().BoolVar(&opts.includeServices, "services", false, "Include services granted by each policy")
	cmd.Flags().BoolVar(&opts.includeOutputs, "outputs", false, "Include template outputs")
	opts.sel.register(cmd)

	return cmd
}

func runGraph(cmd *cobra.Command, g *globalFlags, opts graphOptions) error {
	var graphFormat graph.Format
	switch opts.outputFormat {
	case "dot":
		graphFormat = graph.FormatDOT
	case "mermaid":
		graphFormat = graph.FormatMermaid
	default:
		return fmt.Errorf("unknown format: %s (use 'dot' or 'mermaid')", opts.outputFormat)
	}

	tmpl, assets, err := g.synth(cmd.Context(), opts.sel)
	if err != nil {
		return err
	}

	gen := &graph.Generator{
		Format:          graphFormat,
		ClusterByType:   opts.clusterByType,
		IncludeAssets:   opts.includeAssets,
		IncludeServices: opts.includeServices,
		IncludeOutputs:  opts.includeOutputs,
	}

	return gen.Generate(tmpl, assets, cmd.OutOrStdout())
}
