package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"devjourney/internal/paths"
)

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = 1

// EnvPrefix is the prefix for environment overrides (DEVJOURNEY_ANALYSIS_SINCEHOURS, ...).
const EnvPrefix = "DEVJOURNEY"

// Config represents the complete devjourney configuration
type Config struct {
	Version    int    `json:"version" mapstructure:"version"`
	JourneyDir string `json:"journeyDir" mapstructure:"journeyDir"`
	CatalogDir string `json:"catalogDir" mapstructure:"catalogDir"`

	Analysis  AnalysisConfig  `json:"analysis" mapstructure:"analysis"`
	Matcher   MatcherConfig   `json:"matcher" mapstructure:"matcher"`
	Recommend RecommendConfig `json:"recommend" mapstructure:"recommend"`
	Archive   ArchiveConfig   `json:"archive" mapstructure:"archive"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging"`
}

// AnalysisConfig controls how history is collected
type AnalysisConfig struct {
	SinceHours   int    `json:"sinceHours" mapstructure:"sinceHours"`
	MaxCommits   int    `json:"maxCommits" mapstructure:"maxCommits"`
	MaxDiffLines int    `json:"maxDiffLines" mapstructure:"maxDiffLines"`
	GitTimeoutMs int    `json:"gitTimeoutMs" mapstructure:"gitTimeoutMs"`
	Concurrency  int    `json:"concurrency" mapstructure:"concurrency"`
	Author       string `json:"author" mapstructure:"author"`
}

// MatcherConfig contains snippet settings
type MatcherConfig struct {
	MaxSnippetChars int `json:"maxSnippetChars" mapstructure:"maxSnippetChars"`
}

// RecommendConfig contains recommendation settings
type RecommendConfig struct {
	Limit int `json:"limit" mapstructure:"limit"`
}

// ArchiveConfig controls the session report archive
type ArchiveConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format     string `json:"format" mapstructure:"format"`
	Level      string `json:"level" mapstructure:"level"`
	File       string `json:"file" mapstructure:"file"`
	MaxSize    string `json:"maxSize" mapstructure:"maxSize"`
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups"`
}

// DefaultConfig returns the default configuration.
// Empty directory fields are resolved against the home directory by Resolve.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Analysis: AnalysisConfig{
			SinceHours:   24,
			MaxCommits:   200,
			MaxDiffLines: 1000,
			GitTimeoutMs: 30000,
			Concurrency:  4,
		},
		Matcher: MatcherConfig{
			MaxSnippetChars: 240,
		},
		Recommend: RecommendConfig{
			Limit: 3,
		},
		Archive: ArchiveConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Format:     "human",
			Level:      "warn",
			MaxSize:    "10MB",
			MaxBackups: 3,
		},
	}
}

// LoadConfig loads configuration from <home>/config.json with DEVJOURNEY_* env overrides.
// A missing file yields the defaults.
func LoadConfig(home string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(home)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.Resolve(home)

	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)
	v.SetDefault("journeyDir", d.JourneyDir)
	v.SetDefault("catalogDir", d.CatalogDir)
	v.SetDefault("analysis.sinceHours", d.Analysis.SinceHours)
	v.SetDefault("analysis.maxCommits", d.Analysis.MaxCommits)
	v.SetDefault("analysis.maxDiffLines", d.Analysis.MaxDiffLines)
	v.SetDefault("analysis.gitTimeoutMs", d.Analysis.GitTimeoutMs)
	v.SetDefault("analysis.concurrency", d.Analysis.Concurrency)
	v.SetDefault("analysis.author", d.Analysis.Author)
	v.SetDefault("matcher.maxSnippetChars", d.Matcher.MaxSnippetChars)
	v.SetDefault("recommend.limit", d.Recommend.Limit)
	v.SetDefault("archive.enabled", d.Archive.Enabled)
	v.SetDefault("archive.path", d.Archive.Path)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.maxSize", d.Logging.MaxSize)
	v.SetDefault("logging.maxBackups", d.Logging.MaxBackups)
}

// Resolve fills empty locations from the home layout and expands relative ones.
func (c *Config) Resolve(home string) {
	c.JourneyDir = resolvePath(home, c.JourneyDir, paths.DefaultJourneyDir(home))
	c.CatalogDir = resolvePath(home, c.CatalogDir, paths.DefaultCatalogDir(home))
	c.Archive.Path = resolvePath(home, c.Archive.Path, paths.DefaultArchivePath(home))
	if c.Logging.File != "" {
		c.Logging.File = resolvePath(paths.LogsDir(home), c.Logging.File, "")
	}
}

func resolvePath(base, p, fallback string) string {
	if p == "" {
		return fallback
	}
	if expanded, err := paths.ExpandHome(p); err == nil {
		p = expanded
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Save writes the configuration to <home>/config.json
func (c *Config) Save(home string) error {
	if _, err := paths.EnsureDir(home); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(paths.ConfigPath(home), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Analysis.SinceHours <= 0 {
		return &ConfigError{Field: "analysis.sinceHours", Message: "must be positive"}
	}
	if c.Analysis.MaxDiffLines <= 0 {
		return &ConfigError{Field: "analysis.maxDiffLines", Message: "must be positive"}
	}
	if c.Analysis.GitTimeoutMs <= 0 {
		return &ConfigError{Field: "analysis.gitTimeoutMs", Message: "must be positive"}
	}
	if c.Analysis.Concurrency <= 0 {
		return &ConfigError{Field: "analysis.concurrency", Message: "must be positive"}
	}
	if c.Matcher.MaxSnippetChars < 10 {
		return &ConfigError{Field: "matcher.maxSnippetChars", Message: "must be at least 10"}
	}
	if c.Recommend.Limit <= 0 {
		return &ConfigError{Field: "recommend.limit", Message: "must be positive"}
	}
	switch c.Logging.Format {
	case "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be human or json"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
