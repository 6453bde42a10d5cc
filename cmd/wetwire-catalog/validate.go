package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	wetwire "github.com/lex00/wetwire-aws-catalog"
	"github.com/lex00/wetwire-aws-catalog/internal/schema"
	"github.com/lex00/wetwire-aws-catalog/internal/validation"
)

// newValidateCmd creates the "validate" subcommand for linting the template.
func newValidateCmd(g *globalFlags) *cobra.Command {
	var (
		outputFormat string
		strict       bool
		sel          selection
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Synthesize the template and run cfn-lint on it",
		Long: `Validate synthesizes the template exactly as build does, checks each
resource against its offline property schema, then runs cfn-lint.
Warnings are reported but do not fail validation.

Examples:
    wetwire-catalog validate
    wetwire-catalog validate --strict --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, g, sel, outputFormat, strict)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&strict, "strict", false, "Warn about properties the schema does not know")
	sel.register(cmd)

	return cmd
}

func runValidate(cmd *cobra.Command, g *globalFlags, sel selection, format string, strict bool) error {
	result := wetwire.ValidateResult{}

	tmpl, _, err := g.synth(cmd.Context(), sel)
	if err != nil {
		result.Errors = []string{err.Error()}
		return outputValidateResult(cmd.OutOrStdout(), result, format)
	}
	result.Resources = len(tmpl.Resources)

	schemaResult, err := schema.ValidateTemplate(tmpl, schema.Options{Strict: strict})
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	for _, e := range schemaResult.Errors {
		result.Errors = append(result.Errors, e.String())
	}
	for _, w := range schemaResult.Warnings {
		result.Warnings = append(result.Warnings, w.String())
	}

	lintResult, err := validation.Template(tmpl)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	result.Success = schemaResult.Valid && lintResult.Passed
	result.Errors = append(result.Errors, lintResult.Errors...)
	result.Warnings = append(result.Warnings, lintResult.Warnings...)

	return outputValidateResult(cmd.OutOrStdout(), result, format)
}

func outputValidateResult(w io.Writer, result wetwire.ValidateResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if result.Success {
			fmt.Fprintf(w, "Validation passed: %d resources OK\n", result.Resources)
			for _, warnMsg := range result.Warnings {
				fmt.Fprintf(w, "  WARNING: %s\n", warnMsg)
			}
			return nil
		}

		fmt.Fprintln(w, "Validation FAILED:")
		for _, errMsg := range result.Errors {
			fmt.Fprintf(w, "  ERROR: %s\n", errMsg)
		}
		for _, warnMsg := range result.Warnings {
			fmt.Fprintf(w, "  WARNING: %s\n", warnMsg)
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if !result.Success {
		return fmt.Errorf("validation failed")
	}

	return nil
}
