// Package validation runs cfn-lint-go over synthesized templates.
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lex00/cfn-lint-go/pkg/lint"

	wetwire "github.com/lex00/wetwire-aws-catalog"
	"github.com/lex00/wetwire-aws-catalog/internal/template"
)

// CfnLintResult contains the result of running cfn-lint.
type CfnLintResult struct {
	Passed        bool     `json:"passed"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
	Informational []string `json:"informational"`
}

// TotalIssues returns the total number of issues found.
func (r CfnLintResult) TotalIssues() int {
	return len(r.Errors) + len(r.Warnings) + len(r.Informational)
}

// Template lints an in-memory template. It is written as YAML to a
// temporary directory that is removed afterwards.
func Template(tmpl *wetwire.Template) (*CfnLintResult, error) {
	data, err := template.ToYAML(tmpl)
	if err != nil {
		return nil, fmt.Errorf("serializing template: %w", err)
	}

	dir, err := os.MkdirTemp("", "wetwire-catalog-lint-")
	if err != nil {
		return nil, fmt.Errorf("creating lint workspace: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "template.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing template: %w", err)
	}

	return RunCfnLint(path)
}

// RunCfnLint runs cfn-lint-go on the given template file.
func RunCfnLint(templatePath string) (*CfnLintResult, error) {
	if _, err := os.Stat(templatePath); err != nil {
		return &CfnLintResult{
			Passed: false,
			Errors: []string{fmt.Sprintf("Template file not found: %s", templatePath)},
		}, nil
	}

	linter := lint.New(lint.Options{})
	matches, err := linter.LintFile(templatePath)
	if err != nil {
		return &CfnLintResult{
			Passed: false,
			Errors: []string{fmt.Sprintf("Linter error: %v", err)},
		}, nil
	}

	result := &CfnLintResult{
		Errors:        []string{},
		Warnings:      []string{},
		Informational: []string{},
	}

	for _, match := range matches {
		formatted := formatMatch(match)

		switch match.Level {
		case "Error":
			result.Errors = append(result.Errors, formatted)
		case "Warning":
			result.Warnings = append(result.Warnings, formatted)
		default:
			result.Informational = append(result.Informational, formatted)
		}
	}

	// Warnings are acceptable
	result.Passed = len(result.Errors) == 0

	return result, nil
}

// formatMatch formats a cfn-lint-go match for display.
func formatMatch(match lint.Match) string {
	if len(match.Location.Path) == 0 {
		return fmt.Sprintf("%s: %s", match.Rule.ID, match.Message)
	}

	parts := make([]string, len(match.Location.Path))
	for i, p := range match.Location.Path {
		parts[i] = fmt.Sprintf("%v", p)
	}
	return fmt.Sprintf("%s: %s (at %s)", match.Rule.ID, match.Message, strings.Join(parts, "/"))
}
