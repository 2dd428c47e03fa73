package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lex00/wetwire-atlas-go/internal/config"
	"github.com/lex00/wetwire-atlas-go/internal/lint"
)

// newWatchCmd creates the "watch" subcommand for re-synthesizing on
// configuration changes.
func newWatchCmd() *cobra.Command {
	var (
		lintOnly bool
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-synthesize when the configuration changes",
		Long: `Watch monitors the config file and the env files and re-synthesizes the
deployment whenever one of them changes.

On each change the deployment is linted and, unless lint reports errors or
--lint-only is set, written to the output directory. Rapid changes are
debounced.

Examples:
    wetwire-atlas watch
    wetwire-atlas watch --config prod.yaml --lint-only
    wetwire-atlas watch --debounce 1s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, watchOptions{
				lintOnly: lintOnly,
				debounce: debounce,
			})
		},
	}

	cmd.Flags().BoolVar(&lintOnly, "lint-only", false, "Only run lint, skip writing the assembly")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Debounce duration for rapid changes")

	return cmd
}

type watchOptions struct {
	lintOnly bool
	debounce time.Duration
}

// watchedFiles returns the absolute paths of the files that feed the
// configuration of cmd.
func watchedFiles(cmd *cobra.Command) ([]string, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = os.Getenv(config.EnvPrefix + "_CONFIG")
	}
	if configPath == "" {
		configPath = config.DefaultConfigName + ".yaml"
	}
	envFiles, _ := cmd.Flags().GetStringSlice("env-file")

	seen := make(map[string]bool)
	var files []string
	for _, f := range append([]string{configPath}, envFiles...) {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, err
		}
		if !seen[abs] {
			seen[abs] = true
			files = append(files, abs)
		}
	}
	return files, nil
}

// runWatch watches the directories of the configuration files, since
// editors often replace a file rather than write to it.
func runWatch(cmd *cobra.Command, opts watchOptions) error {
	out := cmd.OutOrStdout()

	files, err := watchedFiles(cmd)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	watched := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, f := range files {
		watched[f] = true
		dir := filepath.Dir(f)
		if dirs[dir] {
			continue
		}
		dirs[dir] = true
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	for _, f := range files {
		fmt.Fprintf(out, "Watching: %s\n", f)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	fmt.Fprintln(out, "Running initial synth...")
	runLintAndSynth(cmd, opts)

	var debounceTimer *time.Timer
	rebuildChan := make(chan struct{}, 1)

	fmt.Fprintln(out, "\nWatching for changes... (Ctrl+C to stop)")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !watched[filepath.Clean(event.Name)] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(opts.debounce, func() {
				select {
				case rebuildChan <- struct{}{}:
				default:
				}
			})

		case <-rebuildChan:
			fmt.Fprintf(out, "\n[%s] Change detected, re-synthesizing...\n", time.Now().Format("15:04:05"))
			runLintAndSynth(cmd, opts)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)

		case <-cmd.Context().Done():
			return nil

		case <-sigChan:
			fmt.Fprintln(out, "\nStopping watch...")
			return nil
		}
	}
}

// runLintAndSynth reloads the configuration, lints the deployment and
// writes it unless lint failed. Failures are reported, never returned, so
// the watch keeps running.
func runLintAndSynth(cmd *cobra.Command, opts watchOptions) bool {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(cmd)
	if err != nil {
		fmt.Fprintf(out, "Config error: %v\n", err)
		return false
	}
	logger, err := newLogger(cmd)
	if err != nil {
		fmt.Fprintf(out, "Logger error: %v\n", err)
		return false
	}
	defer func() { _ = logger.Sync() }()

	assembly, err := synthesize(cfg, logger)
	if err != nil {
		fmt.Fprintf(out, "Synth error: %v\n", err)
		return false
	}

	result := lint.LintAssembly(assembly, lint.Options{})
	printIssues(out, result)
	if !result.Success {
		fmt.Fprintln(out, "Lint failed, skipping synth")
		return false
	}
	fmt.Fprintln(out, "Lint passed")

	if opts.lintOnly {
		return true
	}

	written, err := assembly.Write(cfg.OutputDir)
	if err != nil {
		fmt.Fprintf(out, "Write error: %v\n", err)
		return false
	}
	logger.Debug("assembly written", zap.String("dir", cfg.OutputDir), zap.Int("templates", len(written)))
	fmt.Fprintf(out, "Wrote %d templates to %s\n", len(written), cfg.OutputDir)
	return true
}

func printIssues(w io.Writer, result lint.Result) {
	for _, issue := range result.Issues {
		fmt.Fprintf(w, "%s:%s: %s: %s [%s]\n", issue.Template, issue.Resource, issue.Severity, issue.Message, issue.Rule)
	}
}
