package config

import (
	"reflect"
	"strings"
	"time"

	"github.com/scan-io-git/skim/pkg/rules"
)

// Defaults applied when a setting is not present in the config file.
const (
	DefaultThreads     = 4
	DefaultMaxFileSize = 1 << 20
	DefaultFormat      = "text"
)

// GetBoolValue retrieves a boolean value from a nested struct based on a dot-separated path.
// It returns the provided defaultValue if the specified field is not explicitly set or is nil.
func GetBoolValue(config interface{}, fieldPath string, defaultValue bool) bool {
	if config == nil {
		return defaultValue
	}

	fields := strings.Split(fieldPath, ".")
	val := reflect.ValueOf(config)

	for _, field := range fields {
		if val.Kind() == reflect.Ptr {
			if val.IsNil() {
				return defaultValue
			}
			val = val.Elem()
		}
		if val.Kind() != reflect.Struct {
			return defaultValue
		}

		val = val.FieldByName(field)
		if !val.IsValid() {
			return defaultValue
		}
	}

	// Check if the field is a pointer to a bool and is not nil
	if val.Kind() == reflect.Ptr && !val.IsNil() {
		return val.Elem().Bool()
	} else if val.Kind() == reflect.Bool {
		return val.Bool()
	}

	return defaultValue
}

// SetThen provides a utility to select the first value if set, otherwise defaults.
func SetThen[T any](value T, defaultValue T) T {
	if reflect.ValueOf(value).IsZero() {
		return defaultValue
	}
	return value
}

// RuleSettings converts the rules section into processor settings.
func RuleSettings(cfg *Config) rules.Settings {
	s := rules.Settings{
		UseDefaultRules:         GetBoolValue(cfg, "Rules.UseDefaultRules", true),
		UseCustomRules:          GetBoolValue(cfg, "Rules.UseCustomRules", false),
		UseGitIgnore:            GetBoolValue(cfg, "Rules.UseGitIgnore", true),
		EnableImportantRules:    GetBoolValue(cfg, "Rules.EnableImportantRules", true),
		EnableModerateRules:     GetBoolValue(cfg, "Rules.EnableModerateRules", true),
		EnableBestPracticeRules: GetBoolValue(cfg, "Rules.EnableBestPracticeRules", false),
		EnableManualReviewRules: GetBoolValue(cfg, "Rules.EnableManualReviewRules", false),
	}
	if cfg != nil {
		s.CustomRulesPath = cfg.Rules.CustomRulesPath
	}
	return s
}

// RuleSetOptions returns the rule loading options of the rules section.
func RuleSetOptions(cfg *Config) rules.RuleSetOptions {
	opts := rules.RuleSetOptions{
		Recursive:    GetBoolValue(cfg, "Rules.Recursive", false),
		MatchTimeout: rules.DefaultMatchTimeout,
	}
	if cfg != nil {
		opts.MatchTimeout = SetThen(cfg.Rules.MatchTimeout, rules.DefaultMatchTimeout)
	}
	return opts
}

// GetThreads returns the configured worker count.
func GetThreads(cfg *Config) int {
	if cfg == nil {
		return DefaultThreads
	}
	return SetThen(cfg.Analyse.Threads, DefaultThreads)
}

// GetMaxFileSize returns the largest file size, in bytes, that is analysed.
func GetMaxFileSize(cfg *Config) int64 {
	if cfg == nil {
		return DefaultMaxFileSize
	}
	return SetThen(cfg.Analyse.MaxFileSize, int64(DefaultMaxFileSize))
}

// GetFormat returns the configured report format.
func GetFormat(cfg *Config) string {
	if cfg == nil {
		return DefaultFormat
	}
	return SetThen(cfg.Analyse.Format, DefaultFormat)
}

// GetMatchTimeout returns the per-pattern match timeout.
func GetMatchTimeout(cfg *Config) time.Duration {
	return RuleSetOptions(cfg).MatchTimeout
}
