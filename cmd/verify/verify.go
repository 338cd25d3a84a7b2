package verify

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/scan-io-git/skim/internal/config"
	"github.com/scan-io-git/skim/internal/logger"
	"github.com/scan-io-git/skim/pkg/rules"
	"github.com/scan-io-git/skim/pkg/rules/defaults"
	"github.com/scan-io-git/skim/pkg/shared/errors"
)

// RunOptionsVerify holds the arguments for the verify command.
type RunOptionsVerify struct {
	List           bool
	NoDefaultRules bool
	Recursive      bool
}

var (
	AppConfig          *config.Config
	verifyOptions      RunOptionsVerify
	exampleVerifyUsage = `  # Checking the bundled rules
  skim verify

  # Checking a directory of custom rules together with the bundled ones
  skim verify /path/to/rules

  # Checking single rule files and listing every loaded rule
  skim verify --list --no-default-rules rules/secrets.json rules/web.json`
)

// VerifyCmd represents the verify command.
var VerifyCmd = &cobra.Command{
	Use:                   "verify [--list] [--no-default-rules] [--recursive] [PATH...]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleVerifyUsage,
	Short:                 "Load rule files and report every definition that cannot be used",
	RunE:                  runVerifyCommand,
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

func runVerifyCommand(c *cobra.Command, args []string) error {
	logger := logger.NewLogger(AppConfig, "core-verify")

	if err := validateVerifyArgs(&verifyOptions, args); err != nil {
		logger.Error("invalid verify arguments", "error", err)
		return errors.NewCommandError(err, errors.ExitError)
	}

	opts := config.RuleSetOptions(AppConfig)
	opts.Recursive = opts.Recursive || verifyOptions.Recursive
	opts.Logger = logger.Named("rules")
	rs := rules.NewRuleSet(opts)

	loadErrs := loadRules(rs, &verifyOptions, args)
	out := c.OutOrStdout()
	if verifyOptions.List {
		if err := listRules(out, rs.Rules()); err != nil {
			return errors.NewCommandError(err, errors.ExitError)
		}
	}

	for _, err := range loadErrs {
		fmt.Fprintf(out, "error: %v\n", err)
	}
	fmt.Fprintf(out, "%d rule(s) loaded from %d source(s), %d error(s)\n", rs.Len(), len(rs.Sources()), len(loadErrs))

	if len(loadErrs) > 0 {
		return errors.NewCommandError(fmt.Errorf("%d rule definition error(s)", len(loadErrs)), errors.ExitError)
	}
	logger.Debug("verify command completed", "rules", rs.Len())
	return nil
}

// loadRules loads the bundled rules and every path into rs and returns the
// individual load errors.
func loadRules(rs *rules.RuleSet, options *RunOptionsVerify, paths []string) []error {
	var errs []error
	collect := func(err error) {
		if err == nil {
			return
		}
		var loadErrs *rules.LoadErrors
		if stderrors.As(err, &loadErrs) {
			errs = append(errs, loadErrs.Errors...)
			return
		}
		errs = append(errs, err)
	}

	if !options.NoDefaultRules {
		collect(defaults.Source().Load(rs))
	}
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			collect(&rules.IOError{Path: path, Err: err})
			continue
		}
		if info.IsDir() {
			collect(rules.DirectorySource{Path: path, Label: filepath.Clean(path)}.Load(rs))
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			collect(&rules.IOError{Path: path, Err: err})
			continue
		}
		collect(rules.StringSource{SourceName: filepath.Clean(path), Content: string(data)}.Load(rs))
	}
	return errs
}

// listRules prints one line per rule in store order.
func listRules(w io.Writer, list []*rules.Rule) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSEVERITY\tLANGUAGES\tNAME\tSOURCE")
	for _, r := range list {
		langs := "*"
		if len(r.AppliesTo) > 0 {
			langs = strings.Join(r.AppliesTo, ",")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Severity, langs, r.Name, r.Source)
	}
	return tw.Flush()
}

func init() {
	VerifyCmd.Flags().BoolVar(&verifyOptions.List, "list", false, "List every loaded rule.")
	VerifyCmd.Flags().BoolVar(&verifyOptions.NoDefaultRules, "no-default-rules", false, "Do not load the bundled rules.")
	VerifyCmd.Flags().BoolVarP(&verifyOptions.Recursive, "recursive", "r", false, "Descend into subdirectories of rule directories.")
	VerifyCmd.Flags().BoolP("help", "h", false, "Show help for the verify command.")
}
