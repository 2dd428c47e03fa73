package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lex00/wetwire-atlas-go/internal/render"
	"github.com/lex00/wetwire-atlas-go/internal/synth"
)

// DefaultRenderDir receives rendered assemblies.
const DefaultRenderDir = "rendered.out"

func newRenderCmd() *cobra.Command {
	var (
		from  string
		dest  string
		check bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Substitute {{TOKEN}} placeholders in the templates",
		Long: `Render replaces {{TOKEN}} placeholders such as {{ATLAS_ORG_ID}} with values
from the env files given by --env-file and the process environment, which
wins over every file. A placeholder without a value fails the command and
nothing is written.

By default the configured deployment is synthesized and rendered. Use
--from to render an assembly written earlier.

Examples:
    wetwire-atlas render --env-file prod.env
    wetwire-atlas render --from atlas.out --dest prod.out
    wetwire-atlas render --check`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			assembly, err := renderSource(cmd, from)
			if err != nil {
				return err
			}

			envFiles, _ := cmd.Flags().GetStringSlice("env-file")
			values, err := render.Values(envFiles...)
			if err != nil {
				return err
			}

			missing, err := render.Missing(assembly, values)
			if err != nil {
				return err
			}
			if len(missing) > 0 {
				out := cmd.OutOrStdout()
				files := make([]string, 0, len(missing))
				for file := range missing {
					files = append(files, file)
				}
				sort.Strings(files)
				for _, file := range files {
					fmt.Fprintf(out, "%s: missing %s\n", file, strings.Join(missing[file], ", "))
				}
				return render.ErrMissingValue
			}
			if check {
				fmt.Fprintln(cmd.OutOrStdout(), "Every placeholder has a value.")
				return nil
			}

			rendered, err := render.Assembly(assembly, values)
			if err != nil {
				return err
			}
			written, err := rendered.Write(dest)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rendered %d templates to %s\n", len(written), dest)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Render the assembly in this directory instead of synthesizing")
	cmd.Flags().StringVar(&dest, "dest", DefaultRenderDir, "Directory for the rendered assembly")
	cmd.Flags().BoolVar(&check, "check", false, "Only report placeholders without a value")

	return cmd
}

func renderSource(cmd *cobra.Command, from string) (*synth.Assembly, error) {
	if from != "" {
		return synth.ReadAssembly(from)
	}
	_, assembly, err := loadAssembly(cmd)
	return assembly, err
}
