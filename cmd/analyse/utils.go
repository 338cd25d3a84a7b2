package analyse

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/skim/internal/analyzer"
	"github.com/scan-io-git/skim/internal/ci"
	"github.com/scan-io-git/skim/internal/config"
	"github.com/scan-io-git/skim/internal/git"
	"github.com/scan-io-git/skim/internal/writers"
	"github.com/scan-io-git/skim/pkg/rules"
	"github.com/scan-io-git/skim/pkg/shared/files"
)

// Mode constants
const (
	ModePaths = "paths"
	ModeDiff  = "diff"
)

// reportName is the file name used when --output points to a directory.
const reportName = "skim-report"

// determineMode determines the mode based on the provided arguments.
func determineMode(options *RunOptionsAnalyse) string {
	if options.Base != "" && options.Head != "" {
		return ModeDiff
	}
	return ModePaths
}

// resolveCIRange sets the base and head revisions of options from the CI
// environment read through lookup.
func resolveCIRange(options *RunOptionsAnalyse, lookup ci.LookupFunc) (ci.Environment, error) {
	env, err := ci.FromEnvironment(lookup)
	if err != nil {
		return env, err
	}
	base, head, err := env.DiffRange()
	if err != nil {
		return env, err
	}
	options.Base, options.Head = base, head
	return env, nil
}

// buildSettings applies the command line overrides to the configured rule settings.
func buildSettings(cfg *config.Config, options *RunOptionsAnalyse) rules.Settings {
	settings := config.RuleSettings(cfg)
	if options.NoDefaultRules {
		settings.UseDefaultRules = false
	}
	if options.CustomRules != "" {
		settings.UseCustomRules = true
		settings.CustomRulesPath = options.CustomRules
	}
	if options.NoGitIgnore {
		settings.UseGitIgnore = false
	}
	return settings
}

// severityMask composes the levels named by the severity flag. The second
// result is false when the flag was not used.
func severityMask(names []string) (rules.Severity, bool) {
	var mask rules.Severity
	for _, name := range names {
		if s, err := rules.ParseSeverity(name); err == nil {
			mask |= s
		}
	}
	return mask, mask != 0
}

// analyzerOptions merges the analyse section of the config with the flags.
func analyzerOptions(cfg *config.Config, options *RunOptionsAnalyse, settings rules.Settings) analyzer.Options {
	opts := analyzer.Options{
		Threads:      config.SetThen(options.Threads, config.GetThreads(cfg)),
		MaxFileSize:  config.GetMaxFileSize(cfg),
		UseGitIgnore: settings.UseGitIgnore,
	}
	if cfg != nil {
		opts.Exclude = append(opts.Exclude, cfg.Analyse.Exclude...)
	}
	opts.Exclude = append(opts.Exclude, options.Exclude...)
	return opts
}

// outputFormat returns the format flag, falling back to the configured format.
func outputFormat(cfg *config.Config, options *RunOptionsAnalyse) string {
	return strings.ToLower(config.SetThen(options.Format, config.GetFormat(cfg)))
}

// stdout hides the Close method of os.Stdout from writers.
type stdout struct{ io.Writer }

// openOutput opens the report destination. A directory, or a path without an
// extension, receives a report named after the format.
func openOutput(outputPath, format string) (io.Writer, string, error) {
	if outputPath == "" {
		return stdout{os.Stdout}, "", nil
	}

	filePath, folderPath, err := files.DetermineFileFullPath(outputPath, fmt.Sprintf("%s.%s", reportName, writers.Extension(format)))
	if err != nil {
		return nil, "", fmt.Errorf("failed to determine output path: %w", err)
	}
	if err := files.CreateFolderIfNotExists(folderPath); err != nil {
		return nil, "", err
	}
	f, err := os.Create(filePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create report %q: %w", filePath, err)
	}
	return f, filePath, nil
}

// repositoryMetadata collects repository details so reported paths become
// repository relative and findings get source links. Nothing is collected
// unless needed, which keeps text output paths as given.
func repositoryMetadata(needed bool, args []string, logger hclog.Logger) *git.RepositoryMetadata {
	if !needed || len(args) == 0 {
		return nil
	}

	target := args[0]
	if info, err := os.Stat(target); err == nil && !info.IsDir() {
		target = filepath.Dir(target)
	}
	md, err := git.CollectRepositoryMetadata(target)
	if err != nil {
		logger.Debug("repository metadata is not available", "path", target, "error", err)
		return nil
	}
	return md
}

// writeResult renders every issue of result in path order.
func writeResult(result analyzer.Result, format string, options *RunOptionsAnalyse, md *git.RepositoryMetadata, logger hclog.Logger) error {
	out, filePath, err := openOutput(options.OutputPath, format)
	if err != nil {
		return err
	}

	w, err := writers.New(format, out, writers.Options{
		ToolVersion: ToolVersion,
		Repository:  md,
		Logger:      logger.Named("writer"),
	})
	if err != nil {
		_ = closeOutput(out)
		return err
	}

	for _, file := range result.Files {
		for _, issue := range file.Issues {
			if err := w.WriteIssue(writers.Record{Path: file.Path, Issue: issue}); err != nil {
				_ = w.FlushAndClose()
				return fmt.Errorf("failed to write issue: %w", err)
			}
		}
	}
	if err := w.FlushAndClose(); err != nil {
		return fmt.Errorf("failed to finish report: %w", err)
	}

	if filePath != "" {
		logger.Info("report saved", "path", filePath)
	}
	return nil
}

func closeOutput(w io.Writer) error {
	if c, ok := w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
