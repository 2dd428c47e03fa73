package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	wetwire "github.com/lex00/wetwire-atlas-go"
	"github.com/lex00/wetwire-atlas-go/internal/lint"
)

var errLintFailed = errors.New("lint found errors")

func newLintCmd() *cobra.Command {
	var (
		outputFormat string
		enable       []string
		disable      []string
		listRules    bool
	)

	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Check the synthesized templates for issues",
		Long: `Lint runs advisory rules over the synthesized deployment: wildcard IAM
resources, open access lists, unresolved placeholders, literal passwords,
type activations that do not match the Atlas types in use, and nested
stacks without a TemplateURL.

Only error-severity issues fail the command.

Examples:
    wetwire-atlas lint
    wetwire-atlas lint --disable MAS003
    wetwire-atlas lint --rules`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listRules {
				printRules(cmd.OutOrStdout())
				return nil
			}

			_, assembly, err := loadAssembly(cmd)
			if err != nil {
				return err
			}

			result := lint.LintAssembly(assembly, lint.Options{
				EnabledRules:  enable,
				DisabledRules: disable,
			})
			return outputLintResult(cmd.OutOrStdout(), wetwire.LintResult{
				Success: result.Success,
				Issues:  result.Issues,
			}, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringSliceVar(&enable, "enable", nil, "Run only these rules")
	cmd.Flags().StringSliceVar(&disable, "disable", nil, "Skip these rules")
	cmd.Flags().BoolVar(&listRules, "rules", false, "List the available rules")

	return cmd
}

func printRules(w io.Writer) {
	for _, r := range lint.AllRules() {
		fmt.Fprintf(w, "%s  %s\n", r.ID(), r.Description())
	}
	for _, r := range lint.AllAssemblyRules() {
		fmt.Fprintf(w, "%s  %s\n", r.ID(), r.Description())
	}
}

func outputLintResult(w io.Writer, result wetwire.LintResult, format string) error {
	switch format {
	case "json":
		if err := writeJSON(w, result); err != nil {
			return err
		}

	case "text":
		if len(result.Issues) == 0 {
			fmt.Fprintln(w, "No issues found.")
			return nil
		}
		for _, issue := range result.Issues {
			location := issue.Template
			if issue.Resource != "" {
				location += ":" + issue.Resource
			}
			fmt.Fprintf(w, "%s: %s: %s [%s]\n", location, issue.Severity, issue.Message, issue.Rule)
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if !result.Success {
		return errLintFailed
	}
	return nil
}
