// Package config provides configuration loading and validation for the CLI.
//
// Values are resolved in order: built-in defaults, then a YAML or JSON config
// file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "JOBLY"

// DefaultReadmeURL is the internship feed README.
const DefaultReadmeURL = "https://raw.githubusercontent.com/SimplifyJobs/Summer2026-Internships/dev/README.md"

// Config is the resolved application configuration.
type Config struct {
	Gmail       GmailConfig   `mapstructure:"gmail"`
	Filter      FilterConfig  `mapstructure:"filter"`
	Browser     BrowserConfig `mapstructure:"browser"`
	LLM         LLMConfig     `mapstructure:"llm"`
	Feed        FeedConfig    `mapstructure:"feed"`
	Paths       PathsConfig   `mapstructure:"paths"`
	Watch       WatchConfig   `mapstructure:"watch"`
	DatabaseURL string        `mapstructure:"database_url"` // overrides paths.db when set
	RedisURL    string        `mapstructure:"redis_url"`    // event publishing is off when empty

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// GmailConfig selects digest emails.
type GmailConfig struct {
	SenderFilter  string `mapstructure:"sender_filter" validate:"required"`
	SubjectFilter string `mapstructure:"subject_filter"`
	LookbackDays  int    `mapstructure:"lookback_days" validate:"gte=0"`
	MaxResults    int    `mapstructure:"max_results" validate:"gt=0,lte=500"`
}

// FilterConfig drives fit scoring.
type FilterConfig struct {
	MinScore           float64  `mapstructure:"min_score" validate:"gte=0,lte=1"`
	TitleKeywords      []string `mapstructure:"title_keywords"`
	PreferredATS       []string `mapstructure:"preferred_ats"`
	PreferredLocations []string `mapstructure:"preferred_locations"`
	ExcludedLocations  []string `mapstructure:"excluded_locations"`
}

// BrowserConfig controls the automated browser.
type BrowserConfig struct {
	Headless bool          `mapstructure:"headless"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MinWait  time.Duration `mapstructure:"min_wait" validate:"gte=0"`
	MaxWait  time.Duration `mapstructure:"max_wait" validate:"gtefield=MinWait"`
	// ExecPath points at a Chrome binary; chromedp finds one when empty.
	ExecPath string `mapstructure:"exec_path"`
}

// LLMConfig configures the advisory evaluator.
type LLMConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Model     string `mapstructure:"model" validate:"required_if=Enabled true"`
	APIKey    string `mapstructure:"api_key"`
	MaxTokens int    `mapstructure:"max_tokens" validate:"gt=0"`
}

// FeedConfig configures the README feed source.
type FeedConfig struct {
	ReadmeURL string   `mapstructure:"readme_url" validate:"required,url"`
	SkipATS   []string `mapstructure:"skip_ats"`
}

// PathsConfig holds file locations. A leading ~ and environment variables are expanded.
type PathsConfig struct {
	ConfigDir      string            `mapstructure:"config_dir"`
	DataDir        string            `mapstructure:"data_dir"`
	DB             string            `mapstructure:"db" validate:"required"`
	ArtifactsDir   string            `mapstructure:"artifacts_dir" validate:"required"`
	LogDir         string            `mapstructure:"log_dir"`
	Profile        string            `mapstructure:"profile"`
	Credentials    string            `mapstructure:"credentials"`
	Token          string            `mapstructure:"token"`
	ResumeDefault  string            `mapstructure:"resume_default"`
	ResumeVariants map[string]string `mapstructure:"resume_variants"`
}

// WatchConfig configures the polling loop.
type WatchConfig struct {
	Interval time.Duration `mapstructure:"interval" validate:"gte=1m"`
	Sources  []string      `mapstructure:"sources" validate:"dive,oneof=github gmail"`
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

// DefaultConfigDir returns ~/.config/jobly.
func DefaultConfigDir() string {
	return filepath.Join(homeDir(), ".config", "jobly")
}

// DefaultDataDir returns ~/.local/share/jobly.
func DefaultDataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "jobly")
}

func setDefaults(v *viper.Viper) {
	configDir := DefaultConfigDir()
	dataDir := DefaultDataDir()

	v.SetDefault("gmail.sender_filter", "noreply@swelist.com")
	v.SetDefault("gmail.subject_filter", "")
	v.SetDefault("gmail.lookback_days", 2)
	v.SetDefault("gmail.max_results", 10)

	v.SetDefault("filter.min_score", 0.30)
	v.SetDefault("filter.title_keywords", []string{
		"intern", "internship", "swe", "software engineer",
		"backend", "platform", "infra", "infrastructure",
		"data", "distributed", "database", "systems",
	})
	v.SetDefault("filter.preferred_ats", []string{"ashby", "greenhouse", "lever"})
	v.SetDefault("filter.preferred_locations", []string{})
	v.SetDefault("filter.excluded_locations", []string{})

	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.timeout", 30*time.Second)
	v.SetDefault("browser.min_wait", 300*time.Millisecond)
	v.SetDefault("browser.max_wait", 1200*time.Millisecond)
	v.SetDefault("browser.exec_path", "")

	v.SetDefault("llm.enabled", true)
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.max_tokens", 1024)

	v.SetDefault("feed.readme_url", DefaultReadmeURL)
	v.SetDefault("feed.skip_ats", []string{"workday", "taleo"})

	v.SetDefault("paths.config_dir", configDir)
	v.SetDefault("paths.data_dir", dataDir)
	v.SetDefault("paths.db", filepath.Join(dataDir, "jobly.db"))
	v.SetDefault("paths.artifacts_dir", filepath.Join(dataDir, "artifacts"))
	v.SetDefault("paths.log_dir", filepath.Join(dataDir, "logs"))
	v.SetDefault("paths.profile", filepath.Join(configDir, "profile.json"))
	v.SetDefault("paths.credentials", filepath.Join(configDir, "credentials.json"))
	v.SetDefault("paths.token", filepath.Join(configDir, "token.json"))
	v.SetDefault("paths.resume_default", "")
	v.SetDefault("paths.resume_variants", map[string]string{})

	v.SetDefault("watch.interval", 2*time.Hour)
	v.SetDefault("watch.sources", []string{"github"})

	v.SetDefault("database_url", "")
	v.SetDefault("redis_url", "")
}

// envBindings maps config keys to the unprefixed variables also honoured.
var envBindings = map[string][]string{
	"paths.credentials":    {"GOOGLE_CREDENTIALS_PATH"},
	"paths.token":          {"GOOGLE_TOKEN_PATH"},
	"paths.profile":        {"JOBLY_PROFILE_PATH"},
	"paths.db":             {"JOBLY_DB_PATH"},
	"paths.artifacts_dir":  {"JOBLY_ARTIFACTS_DIR"},
	"paths.log_dir":        {"JOBLY_LOG_DIR"},
	"paths.resume_default": {"RESUME_DEFAULT_PATH"},
	"llm.api_key":          {"GEMINI_API_KEY", "JOBLY_LLM_API_KEY"},
	"database_url":         {"DATABASE_URL", "JOBLY_DATABASE_URL"},
	"redis_url":            {"REDIS_URL", "JOBLY_REDIS_URL"},
}

// Load resolves the configuration. An explicit path must exist; otherwise
// JOBLY_CONFIG_PATH and then ~/.config/jobly/config.yaml are tried and a
// missing file simply leaves the defaults in place.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind environment for %s: %w", key, err)
		}
	}

	file, explicit := path, path != ""
	if !explicit {
		if env := os.Getenv(EnvPrefix + "_CONFIG_PATH"); env != "" {
			file, explicit = ExpandPath(env), true
		} else {
			file = filepath.Join(DefaultConfigDir(), "config.yaml")
		}
	}

	readFile := ""
	if _, err := os.Stat(file); err == nil {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", file, err)
		}
		readFile = file
	} else if explicit {
		return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.File = readFile
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and cross-field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config error: %s failed %q validation", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

func (c *Config) expandPaths() {
	p := &c.Paths
	for _, s := range []*string{
		&p.ConfigDir, &p.DataDir, &p.DB, &p.ArtifactsDir, &p.LogDir,
		&p.Profile, &p.Credentials, &p.Token, &p.ResumeDefault,
	} {
		*s = ExpandPath(*s)
	}
	for name, variant := range p.ResumeVariants {
		p.ResumeVariants[name] = ExpandPath(variant)
	}
}

// ExpandPath expands environment variables and a leading ~ in path.
func ExpandPath(path string) string {
	path = strings.TrimSpace(os.ExpandEnv(path))
	if path == "~" {
		return homeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

// StoreDSN returns the database to open: DatabaseURL when set, else the SQLite path.
func (c *Config) StoreDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.Paths.DB
}

// EnsureDirs creates the data, artifact, log and config directories.
func (c *Config) EnsureDirs() error {
	dirs := []string{c.Paths.DataDir, c.Paths.ArtifactsDir, c.Paths.LogDir, c.Paths.ConfigDir}
	if c.DatabaseURL == "" && c.Paths.DB != ":memory:" {
		dirs = append(dirs, filepath.Dir(c.Paths.DB))
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Resume returns the resume to upload. A known variant wins over the default.
func (c *Config) Resume(variant string) (string, error) {
	if variant != "" {
		if path, ok := c.Paths.ResumeVariants[variant]; ok {
			if _, err := os.Stat(path); err != nil {
				return "", fmt.Errorf("resume variant %q not found: %s", variant, path)
			}
			return path, nil
		}
	}
	if c.Paths.ResumeDefault == "" {
		return "", fmt.Errorf("resume_default is not set; add paths.resume_default to the config or set RESUME_DEFAULT_PATH")
	}
	if _, err := os.Stat(c.Paths.ResumeDefault); err != nil {
		return "", fmt.Errorf("resume file not found: %s", c.Paths.ResumeDefault)
	}
	return c.Paths.ResumeDefault, nil
}
