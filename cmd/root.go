package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scan-io-git/skim/cmd/analyse"
	"github.com/scan-io-git/skim/cmd/verify"
	"github.com/scan-io-git/skim/cmd/version"
	"github.com/scan-io-git/skim/cmd/watch"
	"github.com/scan-io-git/skim/internal/config"
	"github.com/scan-io-git/skim/pkg/shared/errors"
)

var (
	cfgFile   string
	AppConfig *config.Config
	rootCmd   = &cobra.Command{
		Use:                   "skim [command]",
		SilenceUsage:          true,
		SilenceErrors:         true,
		DisableFlagsInUseLine: true,
		Short:                 "Skim is a rule-driven source code scanner.",
		Long: `Skim scans source text for security issues and bad practices using JSON rules
made of string, substring, word and regular expression patterns.
A default rule set is bundled with the binary. Custom rule directories can be
added on top of it and watched for changes.
	`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is config.yml)")
	rootCmd.AddCommand(version.NewVersionCmd())
	rootCmd.AddCommand(analyse.AnalyseCmd)
	rootCmd.AddCommand(verify.VerifyCmd)
	rootCmd.AddCommand(watch.WatchCmd)
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	err := rootCmd.Execute()
	code := errors.ExitCode(err)
	if err != nil && code != errors.ExitIssuesFound {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
	}
	return code
}

func initConfig() {
	var err error

	if cfgFile == "" {
		cfgFile = config.DefaultConfigPath
	}
	AppConfig, err = config.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "initializing config file function is crashed - %v \n", err)
		os.Exit(errors.ExitError)
	}
	if err := config.ValidateConfig(AppConfig); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(errors.ExitError)
	}

	version.Init(AppConfig)
	analyse.Init(AppConfig, version.CoreVersion)
	verify.Init(AppConfig)
	watch.Init(AppConfig)
}
