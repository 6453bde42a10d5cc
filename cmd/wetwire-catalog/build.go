package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	wetwire "github.com/lex00/wetwire-aws-catalog"
	"github.com/lex00/wetwire-aws-catalog/internal/template"
)

type buildOptions struct {
	outputFormat string
	outputFile   string
	assetsFile   string
	sel          selection
}

func newBuildCmd(g *globalFlags) *cobra.Command {
	var opts buildOptions

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Generate the CloudFormation template",
		Long: `Build registers the permission bundles and layer recipes with a stack and
writes the synthesized CloudFormation template.

Every layer source directory must exist; it is fingerprinted to derive the
object key its bundle is uploaded under. --assets writes the manifest the
deployment engine uses to package and upload those bundles.

Examples:
    wetwire-catalog build
    wetwire-catalog build -o template.json --assets assets.json
    wetwire-catalog build --format yaml --region us-east-1 --account 123456789012
    wetwire-catalog build --policies logStatement,s3Statement --layers AgentFlowLayer`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, g, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.outputFormat, "format", "f", "json", "Output format: json or yaml")
	cmd.Flags().StringVarP(&opts.outputFile, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&opts.assetsFile, "assets", "", "Write the asset manifest (JSON) to this file")
	opts.sel.register(cmd)

	return cmd
}

func runBuild(cmd *cobra.Command, g *globalFlags, opts buildOptions) error {
	tmpl, assets, err := g.synth(cmd.Context(), opts.sel)
	if err != nil {
		return outputResult(cmd.OutOrStdout(), wetwire.BuildResult{
			Success: false,
			Errors:  []string{err.Error()},
		}, opts)
	}

	resourceNames := make([]string, 0, len(tmpl.Resources))
	for name := range tmpl.Resources {
		resourceNames = append(resourceNames, name)
	}
	sort.Strings(resourceNames)

	return outputResult(cmd.OutOrStdout(), wetwire.BuildResult{
		Success:   true,
		Template:  *tmpl,
		Resources: resourceNames,
		Assets:    assets,
	}, opts)
}

// outputResult renders the template before writing anything, so a bad
// --format leaves no asset manifest behind.
func outputResult(w io.Writer, result wetwire.BuildResult, opts buildOptions) error {
	if !result.Success {
		return fmt.Errorf("build failed: %s", strings.Join(result.Errors, "; "))
	}

	data, err := renderTemplate(&result.Template, opts.outputFormat)
	if err != nil {
		return err
	}

	if opts.assetsFile != "" {
		if err := writeAssets(opts.assetsFile, result.Assets); err != nil {
			return err
		}
	}

	if opts.outputFile == "" {
		fmt.Fprintln(w, string(data))
		return nil
	}

	return os.WriteFile(opts.outputFile, data, 0644)
}

func renderTemplate(tmpl *wetwire.Template, format string) ([]byte, error) {
	switch format {
	case "json":
		return template.ToJSON(tmpl)
	case "yaml":
		return template.ToYAML(tmpl)
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}
}

func writeAssets(path string, assets []wetwire.Asset) error {
	if assets == nil {
		assets = []wetwire.Asset{}
	}
	data, err := json.MarshalIndent(assets, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding asset manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing asset manifest: %w", err)
	}
	return nil
}
