package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lex00/wetwire-atlas-go/internal/config"
	"github.com/lex00/wetwire-atlas-go/internal/construct"
	"github.com/lex00/wetwire-atlas-go/internal/stacks"
	"github.com/lex00/wetwire-atlas-go/internal/synth"
)

// loadConfig loads the env files named by --env-file and then the
// configuration, with the flags of cmd taking precedence.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFiles, _ := cmd.Flags().GetStringSlice("env-file")
	if err := config.LoadEnvFiles(envFiles...); err != nil {
		return nil, err
	}
	path, _ := cmd.Flags().GetString("config")
	return config.Load(cmd, path)
}

func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if !verbose {
		return zap.NewNop(), nil
	}
	return zap.NewDevelopment()
}

// synthesize declares the deployment described by cfg and synthesizes it.
// Nothing is written.
func synthesize(cfg *config.Config, logger *zap.Logger) (*synth.Assembly, error) {
	props, err := cfg.DeploymentProps()
	if err != nil {
		return nil, err
	}

	app := construct.NewApp()
	if _, err := stacks.NewDeploymentStack(app, cfg.StackName, props); err != nil {
		return nil, fmt.Errorf("declaring %s: %w", cfg.StackName, err)
	}

	opts := cfg.SynthOptions()
	opts.Logger = logger
	return synth.Synthesize(app, opts)
}

// loadAssembly is the common prologue of commands working on the
// configured deployment.
func loadAssembly(cmd *cobra.Command) (*config.Config, *synth.Assembly, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cmd)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = logger.Sync() }()

	assembly, err := synthesize(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, assembly, nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
