package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/scan-io-git/skim/pkg/shared/files"
)

var supportedFormats = []string{"text", "json", "sarif"}

// ValidateConfig checks if the global configurations have valid values.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("YAML global config: configuration object is nil")
	}
	if err := ValidateLoggerConfig(&cfg.Logger); err != nil {
		return fmt.Errorf("YAML global config: logger directive is invalid: %w", err)
	}
	if err := ValidateRulesConfig(&cfg.Rules); err != nil {
		return fmt.Errorf("YAML global config: rules directive is invalid: %w", err)
	}
	if err := ValidateAnalyseConfig(&cfg.Analyse); err != nil {
		return fmt.Errorf("YAML global config: analyse directive is invalid: %w", err)
	}
	return nil
}

// ValidateLoggerConfig checks the logger level name.
func ValidateLoggerConfig(loggerConfig *Logger) error {
	if loggerConfig == nil {
		return fmt.Errorf("logger configuration is nil")
	}
	switch strings.ToUpper(loggerConfig.Level) {
	case "", "TRACE", "DEBUG", "INFO", "WARN", "ERROR":
		return nil
	}
	return fmt.Errorf("unknown log level %q", loggerConfig.Level)
}

// ValidateRulesConfig applies environment overrides and checks the rules settings.
func ValidateRulesConfig(rulesConfig *Rules) error {
	if rulesConfig == nil {
		return fmt.Errorf("rules configuration is nil")
	}

	if envVarValue := os.Getenv("SKIM_CUSTOM_RULES_PATH"); envVarValue != "" {
		rulesConfig.CustomRulesPath = envVarValue
		enabled := true
		rulesConfig.UseCustomRules = &enabled
	}

	if rulesConfig.CustomRulesPath != "" {
		expanded, err := files.ExpandPath(rulesConfig.CustomRulesPath)
		if err != nil {
			return fmt.Errorf("failed to expand custom rules path %q: %w", rulesConfig.CustomRulesPath, err)
		}
		rulesConfig.CustomRulesPath = expanded
	}

	if GetBoolValue(rulesConfig, "UseCustomRules", false) && rulesConfig.CustomRulesPath == "" {
		return fmt.Errorf("custom_rules_path must be set when use_custom_rules is enabled")
	}

	return validateDuration(rulesConfig.MatchTimeout, "match_timeout", 1*time.Minute)
}

// ValidateAnalyseConfig checks the analyse settings.
func ValidateAnalyseConfig(analyseConfig *Analyse) error {
	if analyseConfig == nil {
		return fmt.Errorf("analyse configuration is nil")
	}
	if analyseConfig.Threads < 0 || analyseConfig.Threads > 256 {
		return fmt.Errorf("threads must be between 0 and 256: %d", analyseConfig.Threads)
	}
	if analyseConfig.MaxFileSize < 0 {
		return fmt.Errorf("max_file_size cannot be negative: %d", analyseConfig.MaxFileSize)
	}
	if err := ValidateFormat(analyseConfig.Format); err != nil {
		return err
	}
	for _, pattern := range analyseConfig.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}
	return nil
}

// ValidateFormat checks a report format name. An empty name selects the default.
func ValidateFormat(format string) error {
	if format == "" {
		return nil
	}
	for _, f := range supportedFormats {
		if strings.EqualFold(format, f) {
			return nil
		}
	}
	return fmt.Errorf("unsupported format %q, expected one of: %s", format, strings.Join(supportedFormats, ", "))
}

// validateDuration checks that a time.Duration is valid and within a specified maximum duration.
func validateDuration(d time.Duration, name string, max time.Duration) error {
	if d < 0 {
		return fmt.Errorf("invalid duration for %q: %v cannot be negative", name, d)
	}
	if d > max {
		return fmt.Errorf("%q duration is too long: %v exceeds maximum of %v", name, d, max)
	}
	return nil
}
