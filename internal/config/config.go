// Package config loads runtime settings from defaults, an optional YAML file,
// an optional .env file and the environment, in increasing precedence. CLI
// flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile = "contact-enricher.yaml"
	DefaultEnvFile    = ".env"
)

type Config struct {
	Gemini   GeminiConfig   `yaml:"gemini"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Cache    CacheConfig    `yaml:"cache"`
	Lookup   LookupConfig   `yaml:"lookup"`
	Notion   NotionConfig   `yaml:"notion"`
	Sheets   SheetsConfig   `yaml:"sheets"`
	UI       UIConfig       `yaml:"ui"`
	Log      LogConfig      `yaml:"log"`
}

type GeminiConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type PipelineConfig struct {
	Workers        int           `yaml:"workers"`
	MaxRetries     int           `yaml:"max_retries"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps"`
	FailFast       bool          `yaml:"fail_fast"`
}

type CacheConfig struct {
	MaxEntries int           `yaml:"max_entries"`
	TTL        time.Duration `yaml:"ttl"`
}

type LookupConfig struct {
	Latency time.Duration `yaml:"latency"`
}

type NotionConfig struct {
	Token      string `yaml:"token"`
	DatabaseID string `yaml:"database_id"`
}

type SheetsConfig struct {
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	Range           string `yaml:"range"`
	CredentialsFile string `yaml:"credentials_file"`
}

type UIConfig struct {
	ToastTTL   time.Duration `yaml:"toast_ttl"`
	Accessible bool          `yaml:"accessible"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Gemini: GeminiConfig{Model: "gemini-2.5-flash"},
		Pipeline: PipelineConfig{
			Workers:        4,
			MaxRetries:     2,
			RequestTimeout: 30 * time.Second,
		},
		Lookup: LookupConfig{Latency: 1500 * time.Millisecond},
		Sheets: SheetsConfig{Range: "Sheet1!A1"},
		UI:     UIConfig{ToastTTL: 5 * time.Second},
		Log:    LogConfig{Level: "info"},
	}
}

// NotionEnabled reports whether real Notion credentials are configured.
func (c Config) NotionEnabled() bool {
	return strings.TrimSpace(c.Notion.Token) != "" && strings.TrimSpace(c.Notion.DatabaseID) != ""
}

// SheetsEnabled reports whether a real spreadsheet is configured.
func (c Config) SheetsEnabled() bool {
	return strings.TrimSpace(c.Sheets.SpreadsheetID) != ""
}

// RequireGemini reports a missing API key for commands that call Gemini.
func (c Config) RequireGemini() error {
	if strings.TrimSpace(c.Gemini.APIKey) == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	return nil
}

// Validate reports every invalid value at once.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	check(c.Pipeline.Workers >= 0, "workers must be >= 0, got %d", c.Pipeline.Workers)
	check(c.Pipeline.MaxRetries >= 0, "max_retries must be >= 0, got %d", c.Pipeline.MaxRetries)
	check(c.Pipeline.RequestTimeout > 0, "request_timeout must be > 0, got %s", c.Pipeline.RequestTimeout)
	check(c.Pipeline.RateLimitRPS >= 0, "rate_limit_rps must be >= 0, got %g", c.Pipeline.RateLimitRPS)
	check(c.Cache.MaxEntries >= 0, "cache max_entries must be >= 0, got %d", c.Cache.MaxEntries)
	check(c.Cache.TTL >= 0, "cache ttl must be >= 0, got %s", c.Cache.TTL)
	check(c.Lookup.Latency >= 0, "lookup latency must be >= 0, got %s", c.Lookup.Latency)
	check(c.UI.ToastTTL > 0, "toast_ttl must be > 0, got %s", c.UI.ToastTTL)
	check(strings.TrimSpace(c.Gemini.Model) != "", "gemini model is required")
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "error", "fatal":
	default:
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Log.Level))
	}
	if (c.Notion.Token == "") != (c.Notion.DatabaseID == "") {
		errs = append(errs, fmt.Errorf("NOTION_TOKEN and NOTION_DATABASE_ID must be set together"))
	}
	return errors.Join(errs...)
}

type LoadOptions struct {
	// ConfigPath is a YAML file that must exist. When empty, DefaultConfigFile
	// is read if present.
	ConfigPath string
	// EnvFile is a dotenv file read if present. Defaults to DefaultEnvFile.
	EnvFile string
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load resolves the configuration. Real environment variables win over the
// dotenv file.
func Load(opts LoadOptions) (Config, error) {
	cfg := Default()

	path, required := strings.TrimSpace(opts.ConfigPath), true
	if path == "" {
		path, required = DefaultConfigFile, false
	}
	if err := loadYAML(path, required, &cfg); err != nil {
		return Config{}, err
	}

	envFile := strings.TrimSpace(opts.EnvFile)
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	dotenv, err := readDotenv(envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	env := envSource(func(key string) string {
		if v, ok := lookup(key); ok {
			return v
		}
		return dotenv[key]
	})
	if err := env.apply(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadYAML(path string, required bool, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func readDotenv(path string) (map[string]string, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("stat env file: %w", err)
	}
	vals, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("load env file %s: %w", path, err)
	}
	return vals, nil
}
