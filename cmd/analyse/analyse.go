package analyse

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scan-io-git/skim/internal/analyzer"
	"github.com/scan-io-git/skim/internal/baseline"
	"github.com/scan-io-git/skim/internal/ci"
	"github.com/scan-io-git/skim/internal/cmd"
	"github.com/scan-io-git/skim/internal/config"
	"github.com/scan-io-git/skim/internal/git"
	"github.com/scan-io-git/skim/internal/logger"
	"github.com/scan-io-git/skim/internal/writers"
	"github.com/scan-io-git/skim/pkg/shared/errors"
)

// RunOptionsAnalyse holds the arguments for the analyse command.
type RunOptionsAnalyse struct {
	Format         string
	OutputPath     string
	Threads        int
	Exclude        []string
	Base           string
	Head           string
	FailOnIssues   bool
	CustomRules    string
	Severity       []string
	NoDefaultRules bool
	NoGitIgnore    bool
	Baseline       string
	CI             bool
}

// Global variables for configuration and command arguments
var (
	AppConfig           *config.Config
	ToolVersion         = "unknown"
	analyseOptions      RunOptionsAnalyse
	exampleAnalyseUsage = `  # Analysing a project with the bundled rules
  skim analyse /path/to/my_project

  # Analysing several paths and writing a SARIF report into a directory
  skim analyse --format sarif --output /path/to/reports src/ scripts/deploy.sh

  # Adding custom rules and enabling best-practice findings
  skim analyse --rules /path/to/rules --severity best-practice /path/to/my_project

  # Analysing only the lines added between two revisions
  skim analyse --base origin/main --head HEAD /path/to/repository

  # Analysing the changes of the pull or merge request a CI job builds
  skim analyse --ci --format sarif --output results/ .

  # Failing a CI job when anything is found
  skim analyse --fail-on-issues --exclude "**/vendor/**" --exclude "*.min.js" .

  # Reporting only issues that are not in an earlier JSON report
  skim analyse --baseline skim-report.json --fail-on-issues .`
)

// AnalyseCmd represents the analyse command.
var AnalyseCmd = &cobra.Command{
	Use:                   "analyse [--format/-f FORMAT] [--output/-o PATH] [-j THREADS] [--rules PATH] [--base REV --head REV] PATH...",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleAnalyseUsage,
	Short:                 "Analyse files, directories or a revision range against the rule set",
	Long: `Analyse files, directories or a revision range against the rule set.

Directories are walked recursively. Files ignored by git, matched by an exclude
pattern, larger than the configured limit or detected as binary are skipped.
With --base and --head only the lines added between the two revisions are analysed.`,
	RunE: runAnalyseCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config, version string) {
	AppConfig = cfg
	ToolVersion = version
}

// runAnalyseCommand executes the analyse command.
func runAnalyseCommand(c *cobra.Command, args []string) error {
	if len(args) == 0 && !cmd.HasFlags(c.Flags()) {
		return c.Help()
	}

	logger := logger.NewLogger(AppConfig, "core-analyse")

	if err := validateAnalyseArgs(&analyseOptions, args); err != nil {
		logger.Error("invalid analyse arguments", "error", err)
		return errors.NewCommandError(err, errors.ExitError)
	}

	var ciEnv *ci.Environment
	if analyseOptions.CI {
		env, err := resolveCIRange(&analyseOptions, os.Getenv)
		if err != nil {
			logger.Error("failed to resolve the revision range from the CI environment", "error", err)
			return errors.NewCommandError(err, errors.ExitError)
		}
		logger.Info("analysing CI changes", "ci", env.Kind.String(), "base", analyseOptions.Base, "head", analyseOptions.Head)
		ciEnv = &env
	}

	settings := buildSettings(AppConfig, &analyseOptions)
	processor, err := cmd.NewProcessor(config.RuleSetOptions(AppConfig), settings, logger)
	if err != nil {
		// whatever loaded is still used
		logger.Warn("some rules failed to load", "error", err)
	}
	if mask, ok := severityMask(analyseOptions.Severity); ok {
		processor.SetSeverity(mask)
	}
	if processor.Rules().Len() == 0 {
		err := fmt.Errorf("no rules are loaded")
		logger.Error("nothing to analyse with", "error", err)
		return errors.NewCommandError(err, errors.ExitError)
	}

	a := analyzer.New(processor, nil, git.NewIgnoreGate(logger.Named("ignore")), analyzerOptions(AppConfig, &analyseOptions, settings), logger.Named("analyzer"))

	var result analyzer.Result
	switch mode := determineMode(&analyseOptions); mode {
	case ModeDiff:
		result, err = a.AnalyzeDiff(args[0], analyseOptions.Base, analyseOptions.Head)
		if err != nil {
			logger.Error("failed to analyse revision range", "base", analyseOptions.Base, "head", analyseOptions.Head, "error", err)
			return errors.NewCommandError(err, errors.ExitError)
		}
	default:
		result = a.AnalyzePaths(args)
	}

	for _, fileErr := range result.Errors() {
		logger.Warn("file was not analysed", "error", fileErr)
	}

	format := outputFormat(AppConfig, &analyseOptions)
	md := repositoryMetadata(format != writers.FormatText || analyseOptions.Baseline != "", args, logger)
	if ciEnv != nil {
		ciEnv.Enrich(md)
	}

	if analyseOptions.Baseline != "" {
		known, err := baseline.Load(analyseOptions.Baseline)
		if err != nil {
			logger.Error("failed to load baseline", "error", err)
			return errors.NewCommandError(err, errors.ExitError)
		}
		var suppressed int
		result, suppressed = baseline.Filter(result, known, writers.PathMapper(md))
		logger.Info("known issues suppressed", "baseline", analyseOptions.Baseline, "suppressed", suppressed)
	}

	if err := writeResult(result, format, &analyseOptions, md, logger); err != nil {
		logger.Error("failed to write report", "error", err)
		return errors.NewCommandError(err, errors.ExitError)
	}

	issues := result.IssueCount()
	logger.Info("analyse command completed", "files", len(result.Files), "issues", issues)
	if analyseOptions.FailOnIssues && issues > 0 {
		return errors.NewCommandError(fmt.Errorf("%d issue(s) found", issues), errors.ExitIssuesFound)
	}
	return nil
}

// Initialize flags for the analyse command.
func init() {
	AnalyseCmd.Flags().StringVarP(&analyseOptions.Format, "format", "f", "", "Report format: text, json or sarif. Defaults to the configured format.")
	AnalyseCmd.Flags().StringVarP(&analyseOptions.OutputPath, "output", "o", "", "Path to the output file or directory. The report goes to stdout when omitted.")
	AnalyseCmd.Flags().IntVarP(&analyseOptions.Threads, "threads", "j", 0, "Number of files analysed concurrently. Defaults to the configured value.")
	AnalyseCmd.Flags().StringArrayVar(&analyseOptions.Exclude, "exclude", nil, "Glob pattern of paths to skip. Can be repeated.")
	AnalyseCmd.Flags().StringVar(&analyseOptions.Base, "base", "", "Base revision of the range to analyse. Requires --head.")
	AnalyseCmd.Flags().StringVar(&analyseOptions.Head, "head", "", "Head revision of the range to analyse. Requires --base.")
	AnalyseCmd.Flags().BoolVar(&analyseOptions.FailOnIssues, "fail-on-issues", false, "Exit with code 2 when any issue is found.")
	AnalyseCmd.Flags().StringVar(&analyseOptions.CustomRules, "rules", "", "Directory with custom rule files.")
	AnalyseCmd.Flags().StringSliceVar(&analyseOptions.Severity, "severity", nil, "Severity levels to report, e.g. critical,important. Overrides the configured levels.")
	AnalyseCmd.Flags().BoolVar(&analyseOptions.NoDefaultRules, "no-default-rules", false, "Do not load the bundled rules.")
	AnalyseCmd.Flags().BoolVar(&analyseOptions.NoGitIgnore, "no-git-ignore", false, "Analyse files ignored by git.")
	AnalyseCmd.Flags().BoolVar(&analyseOptions.CI, "ci", false, "Take --base and --head from the pull or merge request the CI job builds.")
	AnalyseCmd.Flags().StringVar(&analyseOptions.Baseline, "baseline", "", "JSON report of an earlier run. Issues found in it are not reported again.")
	AnalyseCmd.Flags().BoolP("help", "h", false, "Show help for the analyse command.")
}
