package version

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/scan-io-git/skim/internal/config"
	"github.com/scan-io-git/skim/pkg/rules"
	"github.com/scan-io-git/skim/pkg/rules/defaults"
)

var (
	AppConfig     *config.Config
	CoreVersion   = "unknown"
	GolangVersion = "unknown"
	BuildTime     = "unknown"
	asJSON        bool
)

// Versions holds version information for the application and its bundled rules.
type Versions struct {
	Version       string `json:"version"`
	GolangVersion string `json:"golang_version"`
	BuildTime     string `json:"build_time"`
	DefaultRules  int    `json:"default_rules"`
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// NewVersionCmd creates a new cobra.Command for the version command.
func NewVersionCmd() *cobra.Command {
	c := &cobra.Command{
		Use:                   "version [--json]",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Short:                 "Print the version number of the application and the bundled rule corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printVersionInfo(cmd.OutOrStdout(), collectVersions(), asJSON)
		},
	}
	c.Flags().BoolVar(&asJSON, "json", false, "Print version information as JSON.")
	return c
}

// collectVersions gathers build information and counts the bundled rules.
func collectVersions() Versions {
	v := Versions{
		Version:       CoreVersion,
		GolangVersion: GolangVersion,
		BuildTime:     BuildTime,
	}
	rs := rules.NewRuleSet(config.RuleSetOptions(AppConfig))
	if err := defaults.Source().Load(rs); err == nil {
		v.DefaultRules = rs.Len()
	}
	return v
}

// printVersionInfo prints the version information.
func printVersionInfo(w io.Writer, v Versions, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	fmt.Fprintf(w, "Core Version: v%s\n", v.Version)
	fmt.Fprintf(w, "Default Rules: %d\n", v.DefaultRules)
	fmt.Fprintf(w, "Go Version: %s\n", v.GolangVersion)
	fmt.Fprintf(w, "Build Time: %s\n", v.BuildTime)
	return nil
}
