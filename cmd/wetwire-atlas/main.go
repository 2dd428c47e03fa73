// Command wetwire-atlas synthesizes the MongoDB Atlas on AWS deployment as
// CloudFormation nested stacks.
//
// Usage:
//
//	wetwire-atlas synth               Write the cloud assembly
//	wetwire-atlas list                List declared resources
//	wetwire-atlas lint                Check templates for issues
//	wetwire-atlas render              Substitute {{TOKEN}} placeholders
//	wetwire-atlas publish             Upload nested templates to S3
//	wetwire-atlas version             Show version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "wetwire-atlas",
		Short: "Synthesize a MongoDB Atlas deployment as CloudFormation",
		Long: `wetwire-atlas declares a MongoDB Atlas project and cluster on AWS as
CloudFormation nested stacks and writes them as a cloud assembly.

The deployment is configured by ./wetwire-atlas.yaml, WETWIRE_ATLAS_*
environment variables and flags:

    wetwire-atlas synth --variant partial --region us-east-1

Placeholders such as {{ATLAS_ORG_ID}} stay in the templates until
rendered:

    wetwire-atlas render --env-file .env`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (default ./wetwire-atlas.yaml)")
	flags.StringSlice("env-file", []string{".env"}, "Env files loaded before configuration")
	flags.BoolP("verbose", "v", false, "Log synthesis and publishing steps")
	flags.String("stack-name", "", "Name of the root stack")
	flags.String("region", "", "AWS region of the deployment")
	flags.String("variant", "", "Deployment variant: full, partial or skeleton")
	flags.StringP("output", "o", "", "Assembly output directory")
	flags.String("asset-bucket", "", "Bucket hosting nested templates")
	flags.String("asset-prefix", "", "Object key prefix of nested templates")

	rootCmd.AddCommand(
		newSynthCmd(),
		newListCmd(),
		newGraphCmd(),
		newValidateCmd(),
		newLintCmd(),
		newDiffCmd(),
		newRenderCmd(),
		newPublishCmd(),
		newWatchCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "wetwire-atlas %s\n", getVersion())
		},
	}
}
