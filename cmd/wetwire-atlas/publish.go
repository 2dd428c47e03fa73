package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lex00/wetwire-atlas-go/internal/publish"
	"github.com/lex00/wetwire-atlas-go/internal/synth"
)

func newPublishCmd() *cobra.Command {
	var (
		outputFormat string
		from         string
		force        bool
		concurrency  int
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload nested templates to the asset bucket",
		Long: `Publish uploads every nested template of the assembly to the asset bucket
under its content-addressed key, so the TemplateURLs of the root template
resolve at deploy time. Objects that already exist are skipped.

Credentials come from the default AWS chain. ${AWS::Region} and
${AWS::AccountId} in the bucket name are replaced by the configured region
and --account-id.

Examples:
    wetwire-atlas publish --account-id 123456789012
    wetwire-atlas publish --from rendered.out --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			var assembly *synth.Assembly
			if from != "" {
				assembly, err = synth.ReadAssembly(from)
			} else {
				assembly, err = synthesize(cfg, logger)
			}
			if err != nil {
				return err
			}

			client, err := publish.NewClient(cmd.Context(), cfg.Region)
			if err != nil {
				return err
			}
			result, err := publish.Publish(cmd.Context(), client, assembly, publish.Options{
				Region:      cfg.Region,
				AccountID:   cfg.Assets.AccountID,
				Concurrency: concurrency,
				Force:       force,
				Logger:      logger,
			})
			if err != nil {
				return fmt.Errorf("publish failed: %w", err)
			}
			return outputPublishResult(cmd.OutOrStdout(), result, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringVar(&from, "from", "", "Publish the assembly in this directory instead of synthesizing")
	cmd.Flags().String("account-id", "", "AWS account id substituted into the bucket name")
	cmd.Flags().BoolVar(&force, "force", false, "Upload objects that already exist")
	cmd.Flags().IntVar(&concurrency, "concurrency", publish.DefaultConcurrency, "Maximum parallel uploads")

	return cmd
}

func outputPublishResult(w io.Writer, result *publish.Result, format string) error {
	switch format {
	case "json":
		return writeJSON(w, result)

	case "text":
		for _, o := range result.Objects {
			state := "uploaded"
			if o.Skipped {
				state = "exists"
			}
			fmt.Fprintf(w, "%-8s s3://%s/%s (%s)\n", state, o.Bucket, o.Key, o.Stack)
		}
		fmt.Fprintf(w, "\nPublished %d of %d templates to %s\n", result.Uploaded(), len(result.Objects), result.Bucket)
		return nil

	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}
