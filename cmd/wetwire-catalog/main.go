// Command wetwire-catalog synthesizes the shared IAM permission bundles and
// Lambda layers as a CloudFormation template.
//
// Usage:
//
//	wetwire-catalog build -o template.json    Generate CloudFormation template
//	wetwire-catalog list                      Show bundles and layer recipes
//	wetwire-catalog validate                  Run cfn-lint on the template
//	wetwire-catalog diff template.json        Compare with a saved template
//	wetwire-catalog graph -f mermaid          Draw the template
//	wetwire-catalog watch                     Rebuild on layer source changes
//	wetwire-catalog version                   Show version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lex00/wetwire-aws-catalog/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	var flush func()

	rootCmd := &cobra.Command{
		Use:   "wetwire-catalog",
		Short: "Synthesize shared IAM policies and Lambda layers",
		Long: `wetwire-catalog declares the solution's shared permission bundles and
Lambda layer packaging recipes as Go values and synthesizes them as a
CloudFormation template plus a manifest of layer assets to package.

Configuration comes from an optional TOML file (--config) overlaid with
LAYER_PIP_OPTION, WETWIRE_SOURCE_ROOT, WETWIRE_STACK_NAME and
WETWIRE_ASSET_QUALIFIER. The deployment account and region come from flags,
then CDK_DEPLOY_*, then CDK_DEFAULT_*, then (with --lookup-account) STS.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			flush, err = logging.Install(g.verbose)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if flush != nil {
				flush()
			}
		},
	}

	g.register(rootCmd)

	rootCmd.AddCommand(
		newBuildCmd(g),
		newListCmd(g),
		newValidateCmd(g),
		newDiffCmd(g),
		newGraphCmd(g),
		newWatchCmd(g),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "wetwire-catalog %s\n", getVersion())
		},
	}
}
