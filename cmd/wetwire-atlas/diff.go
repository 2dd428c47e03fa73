package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	wetwire "github.com/lex00/wetwire-atlas-go"
	"github.com/lex00/wetwire-atlas-go/internal/differ"
	"github.com/lex00/wetwire-atlas-go/internal/synth"
)

func newDiffCmd() *cobra.Command {
	var (
		outputFormat      string
		ignoreOrder       bool
		ignoreTemplateURL bool
	)

	cmd := &cobra.Command{
		Use:   "diff [old-dir] [new-dir]",
		Short: "Compare synthesized assemblies",
		Long: `Diff compares two cloud assemblies resource by resource.

With no arguments the configured deployment is synthesized and compared
against the assembly in the output directory. With one argument it is
compared against that directory instead. With two arguments both
directories are compared.

Examples:
    wetwire-atlas diff
    wetwire-atlas diff previous.out --ignore-template-url
    wetwire-atlas diff old.out new.out -f json`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := differ.Options{
				IgnoreOrder:       ignoreOrder,
				IgnoreTemplateURL: ignoreTemplateURL,
			}

			var (
				result *differ.Result
				err    error
			)
			if len(args) == 2 {
				result, err = differ.CompareDirs(args[0], args[1], opts)
			} else {
				result, err = diffCurrent(cmd, args, opts)
			}
			if err != nil {
				return err
			}
			return outputDiffResult(cmd.OutOrStdout(), result, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&ignoreOrder, "ignore-order", false, "Ignore array element order")
	cmd.Flags().BoolVar(&ignoreTemplateURL, "ignore-template-url", false, "Ignore TemplateURL changes of nested stacks")

	return cmd
}

func diffCurrent(cmd *cobra.Command, args []string, opts differ.Options) (*differ.Result, error) {
	cfg, current, err := loadAssembly(cmd)
	if err != nil {
		return nil, err
	}

	dir := cfg.OutputDir
	if len(args) == 1 {
		dir = args[0]
	}
	previous, err := synth.ReadAssembly(dir)
	if err != nil {
		return nil, err
	}
	return differ.CompareAssemblies(previous, current, opts)
}

func outputDiffResult(w io.Writer, result *differ.Result, format string) error {
	switch format {
	case "json":
		return writeJSON(w, struct {
			Diff    wetwire.TemplateDiff `json:"diff"`
			Summary wetwire.DiffSummary  `json:"summary"`
		}{result.Diff, result.Summary})

	case "text":
		if result.Empty() {
			fmt.Fprintln(w, "No differences.")
			return nil
		}
		printEntries := func(sign string, entries []wetwire.DiffEntry) {
			for _, e := range entries {
				fmt.Fprintf(w, "%s %s:%s (%s)\n", sign, e.Template, e.Resource, e.Type)
				for _, change := range e.Changes {
					fmt.Fprintf(w, "    %s\n", change)
				}
			}
		}
		printEntries("+", result.Diff.Added)
		printEntries("-", result.Diff.Removed)
		printEntries("~", result.Diff.Modified)
		fmt.Fprintf(w, "\n%d added, %d removed, %d modified\n",
			result.Summary.Added, result.Summary.Removed, result.Summary.Modified)
		return nil

	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}
