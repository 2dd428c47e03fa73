package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	wetwire "github.com/lex00/wetwire-atlas-go"
	"github.com/lex00/wetwire-atlas-go/internal/synth"
	"github.com/lex00/wetwire-atlas-go/internal/template"
)

var errSynthFailed = errors.New("synth failed")

func newSynthCmd() *cobra.Command {
	var (
		outputFormat string
		printPath    string
		yamlOutput   bool
	)

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Synthesize the deployment into a cloud assembly",
		Long: `Synth declares the configured deployment and writes one JSON template per
stack plus manifest.json to the output directory.

With --print, a single template is written to stdout instead.

Examples:
    wetwire-atlas synth
    wetwire-atlas synth --variant skeleton -o skeleton.out
    wetwire-atlas synth --print DemoStack/ClusterStack --yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if printPath != "" {
				return runSynthPrint(cmd, printPath, yamlOutput)
			}
			return runSynth(cmd, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringVar(&printPath, "print", "", "Print the template of the stack at this path instead of writing the assembly")
	cmd.Flags().BoolVar(&yamlOutput, "yaml", false, "Print the template as YAML")

	return cmd
}

func runSynth(cmd *cobra.Command, format string) error {
	cfg, assembly, err := loadAssembly(cmd)
	if err != nil {
		return outputSynthResult(cmd.OutOrStdout(), wetwire.SynthResult{
			Success: false,
			Errors:  []string{err.Error()},
		}, format)
	}

	written, err := assembly.Write(cfg.OutputDir)
	if err != nil {
		return outputSynthResult(cmd.OutOrStdout(), wetwire.SynthResult{
			Success: false,
			Errors:  []string{err.Error()},
		}, format)
	}

	return outputSynthResult(cmd.OutOrStdout(), wetwire.SynthResult{
		Success:   true,
		Directory: cfg.OutputDir,
		Templates: written,
	}, format)
}

func outputSynthResult(w io.Writer, result wetwire.SynthResult, format string) error {
	switch format {
	case "json":
		if err := writeJSON(w, result); err != nil {
			return err
		}
	case "text":
		for _, e := range result.Errors {
			fmt.Fprintf(w, "error: %s\n", e)
		}
		if result.Success {
			fmt.Fprintf(w, "Wrote %d templates to %s\n", len(result.Templates), result.Directory)
			for _, t := range result.Templates {
				fmt.Fprintf(w, "  %s\n", t)
			}
		}
	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if !result.Success {
		return errSynthFailed
	}
	return nil
}

func runSynthPrint(cmd *cobra.Command, path string, yamlOutput bool) error {
	_, assembly, err := loadAssembly(cmd)
	if err != nil {
		return err
	}
	artifact, err := findStack(assembly, path)
	if err != nil {
		return err
	}

	var data []byte
	if yamlOutput {
		data, err = template.ToYAML(artifact.Template)
	} else {
		data, err = artifact.Data()
	}
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

// findStack resolves a stack path. A bare unit id such as ClusterStack is
// looked up below the root stack.
func findStack(assembly *synth.Assembly, path string) (*synth.StackArtifact, error) {
	if s, ok := assembly.Stack(path); ok {
		return s, nil
	}
	for _, root := range assembly.Roots() {
		if s, ok := assembly.Stack(root.Path + "/" + path); ok {
			return s, nil
		}
	}
	return nil, fmt.Errorf("no stack %q in the assembly", path)
}
