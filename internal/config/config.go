package config

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// DefaultConfigPath is used when no --config flag is given.
const DefaultConfigPath = "config.yml"

type Config struct {
	Logger  Logger  `yaml:"logger"`
	Rules   Rules   `yaml:"rules"`
	Analyse Analyse `yaml:"analyse"`
}

type Logger struct {
	Level           string `yaml:"level"`
	DisableTime     *bool  `yaml:"disable_time"`
	JSONFormat      *bool  `yaml:"json_format"`
	IncludeLocation *bool  `yaml:"include_location"`
}

// Rules is the settings surface of the rule processor.
type Rules struct {
	UseDefaultRules         *bool         `yaml:"use_default_rules"`
	UseCustomRules          *bool         `yaml:"use_custom_rules"`
	CustomRulesPath         string        `yaml:"custom_rules_path"`
	Recursive               *bool         `yaml:"recursive"`
	UseGitIgnore            *bool         `yaml:"use_git_ignore"`
	EnableImportantRules    *bool         `yaml:"enable_important_rules"`
	EnableModerateRules     *bool         `yaml:"enable_moderate_rules"`
	EnableBestPracticeRules *bool         `yaml:"enable_best_practice_rules"`
	EnableManualReviewRules *bool         `yaml:"enable_manual_review_rules"`
	MatchTimeout            time.Duration `yaml:"match_timeout"`
}

type Analyse struct {
	Threads     int      `yaml:"threads"`
	MaxFileSize int64    `yaml:"max_file_size"`
	Exclude     []string `yaml:"exclude"`
	Format      string   `yaml:"format"`
}

func ValidateConfigPath(path string) error {
	s, err := os.Stat(path)
	if err != nil {
		return err
	}
	if s.IsDir() {
		return fmt.Errorf("'%s' is a directory, not a file", path)
	}
	return nil
}

func LoadYAML(configPath string, data interface{}) error {
	if err := ValidateConfigPath(configPath); err != nil {
		return err
	}

	file, err := os.Open(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	d := yaml.NewDecoder(file)
	if err := d.Decode(data); err != nil {
		return fmt.Errorf("failed to decode %q: %w", configPath, err)
	}

	return nil
}

func NewConfig(configPath string) (*Config, error) {
	config := &Config{}

	if err := LoadYAML(configPath, config); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadConfig reads the config file at path. A missing file at the default
// location yields an empty config so the tool runs without one.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}
	cfg, err := NewConfig(path)
	if err != nil {
		if os.IsNotExist(err) && path == DefaultConfigPath {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("unable to load config %q: %w", path, err)
	}
	return cfg, nil
}
