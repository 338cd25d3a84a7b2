package watch

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/scan-io-git/skim/internal/analyzer"
	"github.com/scan-io-git/skim/internal/cmd"
	"github.com/scan-io-git/skim/internal/config"
	"github.com/scan-io-git/skim/internal/git"
	"github.com/scan-io-git/skim/internal/logger"
	"github.com/scan-io-git/skim/internal/reload"
	"github.com/scan-io-git/skim/internal/writers"
	"github.com/scan-io-git/skim/pkg/rules"
	"github.com/scan-io-git/skim/pkg/shared/errors"
)

// RunOptionsWatch holds the arguments for the watch command.
type RunOptionsWatch struct {
	CustomRules    string
	Threads        int
	Exclude        []string
	Debounce       time.Duration
	Recursive      bool
	NoDefaultRules bool
	NoGitIgnore    bool
}

var (
	AppConfig         *config.Config
	watchOptions      RunOptionsWatch
	exampleWatchUsage = `  # Re-running the analysis of a project whenever a custom rule changes
  skim watch --rules /path/to/rules /path/to/my_project

  # Developing rules in nested folders without the bundled rules
  skim watch --rules ./rules --recursive --no-default-rules testdata/`
)

// WatchCmd represents the watch command.
var WatchCmd = &cobra.Command{
	Use:                   "watch --rules PATH [--recursive] [--debounce DURATION] PATH...",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleWatchUsage,
	Short:                 "Analyse paths again every time a custom rule file changes",
	Long: `Analyse paths again every time a custom rule file changes.

The custom rules directory is watched for created, written, removed and renamed
rule files. Bursts of changes are collapsed into one reload. The command runs
until it is interrupted.`,
	RunE: runWatchCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func runWatchCommand(c *cobra.Command, args []string) error {
	if len(args) == 0 && !cmd.HasFlags(c.Flags()) {
		return c.Help()
	}

	logger := logger.NewLogger(AppConfig, "core-watch")

	if err := validateWatchArgs(&watchOptions, args); err != nil {
		logger.Error("invalid watch arguments", "error", err)
		return errors.NewCommandError(err, errors.ExitError)
	}

	settings := config.RuleSettings(AppConfig)
	settings.UseCustomRules = true
	settings.CustomRulesPath = watchOptions.CustomRules
	if watchOptions.NoDefaultRules {
		settings.UseDefaultRules = false
	}
	if watchOptions.NoGitIgnore {
		settings.UseGitIgnore = false
	}

	ruleSetOpts := ruleSetOptions(AppConfig, watchOptions.Recursive)
	processor, err := cmd.NewProcessor(ruleSetOpts, settings, logger)
	if err != nil {
		logger.Warn("some rules failed to load", "error", err)
	}

	gate := git.NewIgnoreGate(logger.Named("ignore"))
	a := analyzer.New(processor, nil, gate, analyzer.Options{
		Threads:      config.SetThen(watchOptions.Threads, config.GetThreads(AppConfig)),
		MaxFileSize:  config.GetMaxFileSize(AppConfig),
		Exclude:      excludePatterns(AppConfig, watchOptions.Exclude),
		UseGitIgnore: settings.UseGitIgnore,
	}, logger.Named("analyzer"))

	r := &runner{analyzer: a, paths: args, out: c.OutOrStdout(), logger: logger}
	if err := r.run(processor.Rules().Len()); err != nil {
		return errors.NewCommandError(err, errors.ExitError)
	}

	w, err := reload.New(processor, settings, reload.Options{
		Debounce:  watchOptions.Debounce,
		Recursive: ruleSetOpts.Recursive,
		OnReload: func(error) {
			gate.Invalidate()
			if err := r.run(processor.Rules().Len()); err != nil {
				logger.Error("analysis after reload failed", "error", err)
			}
		},
	}, logger.Named("watcher"))
	if err != nil {
		logger.Error("failed to start watching rules", "error", err)
		return errors.NewCommandError(err, errors.ExitError)
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := w.Run(ctx); err != nil {
		logger.Error("watcher stopped", "error", err)
		return errors.NewCommandError(err, errors.ExitError)
	}
	logger.Info("watch command stopped")
	return nil
}

// runner analyses the watched paths and prints the issues as text.
type runner struct {
	mu       sync.Mutex
	analyzer *analyzer.Analyzer
	paths    []string
	out      io.Writer
	logger   hclog.Logger
}

func (r *runner) run(ruleCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := r.analyzer.AnalyzePaths(r.paths)
	for _, fileErr := range result.Errors() {
		r.logger.Warn("file was not analysed", "error", fileErr)
	}

	w, err := writers.New(writers.FormatText, nopCloser{r.out}, writers.Options{Logger: r.logger})
	if err != nil {
		return err
	}
	for _, file := range result.Files {
		for _, issue := range file.Issues {
			if err := w.WriteIssue(writers.Record{Path: file.Path, Issue: issue}); err != nil {
				return err
			}
		}
	}
	if err := w.FlushAndClose(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(r.out, "-- %d issue(s) in %d file(s) with %d rule(s)\n", result.IssueCount(), len(result.Files), ruleCount)
	return err
}

// nopCloser keeps the writer from closing the command output.
type nopCloser struct{ io.Writer }

// ruleSetOptions applies the 'recursive' flag on top of the configured rule loading options.
func ruleSetOptions(cfg *config.Config, recursive bool) rules.RuleSetOptions {
	opts := config.RuleSetOptions(cfg)
	opts.Recursive = opts.Recursive || recursive
	return opts
}

func excludePatterns(cfg *config.Config, extra []string) []string {
	var patterns []string
	if cfg != nil {
		patterns = append(patterns, cfg.Analyse.Exclude...)
	}
	return append(patterns, extra...)
}

func init() {
	WatchCmd.Flags().StringVar(&watchOptions.CustomRules, "rules", "", "Directory with custom rule files to watch. Defaults to the configured custom_rules_path.")
	WatchCmd.Flags().IntVarP(&watchOptions.Threads, "threads", "j", 0, "Number of files analysed concurrently. Defaults to the configured value.")
	WatchCmd.Flags().StringArrayVar(&watchOptions.Exclude, "exclude", nil, "Glob pattern of paths to skip. Can be repeated.")
	WatchCmd.Flags().DurationVar(&watchOptions.Debounce, "debounce", reload.DefaultDebounce, "Quiet period after the last change before rules are reloaded.")
	WatchCmd.Flags().BoolVarP(&watchOptions.Recursive, "recursive", "r", false, "Watch and load subdirectories of the rules directory.")
	WatchCmd.Flags().BoolVar(&watchOptions.NoDefaultRules, "no-default-rules", false, "Do not load the bundled rules.")
	WatchCmd.Flags().BoolVar(&watchOptions.NoGitIgnore, "no-git-ignore", false, "Analyse files ignored by git.")
	WatchCmd.Flags().BoolP("help", "h", false, "Show help for the watch command.")
}
