package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	wetwire "github.com/lex00/wetwire-atlas-go"
	"github.com/lex00/wetwire-atlas-go/internal/synth"
)

func newListCmd() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List declared resources",
		Long: `List synthesizes the configured deployment and displays every resource
with the stack that declares it.

Examples:
    wetwire-atlas list
    wetwire-atlas list --variant partial --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, assembly, err := loadAssembly(cmd)
			if err != nil {
				return err
			}
			return outputListResult(cmd.OutOrStdout(), listResources(assembly), outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func listResources(assembly *synth.Assembly) wetwire.ListResult {
	result := wetwire.ListResult{Resources: []wetwire.ListResource{}}
	for _, s := range assembly.Stacks {
		for name, res := range s.Template.Resources {
			result.Resources = append(result.Resources, wetwire.ListResource{
				Stack: s.Path,
				Name:  name,
				Type:  res.Type,
			})
		}
	}

	sort.Slice(result.Resources, func(i, j int) bool {
		a, b := result.Resources[i], result.Resources[j]
		if a.Stack != b.Stack {
			return a.Stack < b.Stack
		}
		return a.Name < b.Name
	})
	return result
}

func outputListResult(w io.Writer, result wetwire.ListResult, format string) error {
	switch format {
	case "json":
		return writeJSON(w, result)

	case "text":
		if len(result.Resources) == 0 {
			fmt.Fprintln(w, "No resources found.")
			return nil
		}

		fmt.Fprintf(w, "Registered resources (%d):\n", len(result.Resources))
		stack := ""
		for _, r := range result.Resources {
			if r.Stack != stack {
				stack = r.Stack
				fmt.Fprintf(w, "\n%s\n", stack)
			}
			fmt.Fprintf(w, "  %s: %s\n", r.Name, r.Type)
		}
		return nil

	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}
