package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	wetwire "github.com/lex00/wetwire-atlas-go"
	"github.com/lex00/wetwire-atlas-go/internal/validation"
)

var errValidationFailed = errors.New("validation failed")

func newValidateCmd() *cobra.Command {
	var (
		outputFormat string
		strict       bool
		cfnLint      bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the synthesized templates",
		Long: `Validate checks that every Ref, Fn::GetAtt and DependsOn of the synthesized
deployment resolves, that nested stack parameters and outputs line up, and
that resources match their schemas.

With --cfn-lint the assembly is written to the output directory and every
template is also checked by cfn-lint.

Examples:
    wetwire-atlas validate
    wetwire-atlas validate --strict --format json
    wetwire-atlas validate --cfn-lint`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, assembly, err := loadAssembly(cmd)
			if err != nil {
				return err
			}

			result, err := validation.ValidateAssembly(assembly, validation.Options{Strict: strict})
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			if cfnLint {
				if _, err := assembly.Write(cfg.OutputDir); err != nil {
					return err
				}
				lintResults, err := validation.RunCfnLintDir(cfg.OutputDir, assembly)
				if err != nil {
					return err
				}
				mergeCfnLint(result, lintResults)
			}

			return outputValidateResult(cmd.OutOrStdout(), *result, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&strict, "strict", false, "Report unknown properties as warnings")
	cmd.Flags().BoolVar(&cfnLint, "cfn-lint", false, "Also run cfn-lint on the written templates")

	return cmd
}

// mergeCfnLint folds cfn-lint findings into result. Informational matches
// are dropped.
func mergeCfnLint(result *wetwire.ValidateResult, lintResults []*validation.CfnLintResult) {
	for _, r := range lintResults {
		for _, e := range r.Errors {
			result.Errors = append(result.Errors, r.Template+": "+e)
		}
		for _, w := range r.Warnings {
			result.Warnings = append(result.Warnings, r.Template+": "+w)
		}
	}
	result.Success = len(result.Errors) == 0
}

func outputValidateResult(w io.Writer, result wetwire.ValidateResult, format string) error {
	switch format {
	case "json":
		if err := writeJSON(w, result); err != nil {
			return err
		}

	case "text":
		if result.Success {
			fmt.Fprintf(w, "Validation passed: %d templates, %d resources\n", result.Templates, result.Resources)
		}
		for _, e := range result.Errors {
			fmt.Fprintf(w, "error: %s\n", e)
		}
		for _, warning := range result.Warnings {
			fmt.Fprintf(w, "warning: %s\n", warning)
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if !result.Success {
		return errValidationFailed
	}
	return nil
}
