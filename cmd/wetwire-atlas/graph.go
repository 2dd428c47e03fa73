package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lex00/wetwire-atlas-go/internal/graph"
)

func newGraphCmd() *cobra.Command {
	var (
		outputFormat      string
		includeParameters bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Generate DOT graph of resource dependencies",
		Long: `Generate a DOT or Mermaid format graph of the synthesized deployment, one
cluster per stack. Values handed from one stack to another are drawn as
dashed edges.

The output can be rendered with Graphviz:
    wetwire-atlas graph | dot -Tpng -o deps.png

Or used in GitHub markdown (Mermaid format):
    wetwire-atlas graph -f mermaid

Examples:
    wetwire-atlas graph
    wetwire-atlas graph -p                  # include parameters
    wetwire-atlas graph --variant partial`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var graphFormat graph.Format
			switch outputFormat {
			case "dot":
				graphFormat = graph.FormatDOT
			case "mermaid":
				graphFormat = graph.FormatMermaid
			default:
				return fmt.Errorf("unknown format: %s (use 'dot' or 'mermaid')", outputFormat)
			}

			_, assembly, err := loadAssembly(cmd)
			if err != nil {
				return err
			}

			gen := &graph.Generator{
				Format:            graphFormat,
				IncludeParameters: includeParameters,
			}
			return gen.Generate(assembly, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "dot", "Output format: dot or mermaid")
	cmd.Flags().BoolVarP(&includeParameters, "include-parameters", "p", false, "Include parameter nodes in the graph")

	return cmd
}
