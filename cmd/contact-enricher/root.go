package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/palantir/contact-enricher/internal/app"
	"github.com/palantir/contact-enricher/internal/config"
	"github.com/palantir/contact-enricher/internal/logger"
)

// rootOptions holds the persistent flags and the app built from them.
type rootOptions struct {
	configPath string
	envFile    string
	logLevel   string
	logJSON    bool

	geminiModel    string
	geminiBaseURL  string
	maxRetries     int
	requestTimeout time.Duration
	rateLimitRPS   float64

	app *app.App
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "contact-enricher",
		Short:         "Enrich sparse contact details and save them to Notion or Google Sheets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "", "YAML config file (default ./"+config.DefaultConfigFile+" if present)")
	f.StringVar(&opts.envFile, "env-file", "", "dotenv file (default ./"+config.DefaultEnvFile+" if present)")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (env: LOG_LEVEL)")
	f.BoolVar(&opts.logJSON, "log-json", false, "Log as JSON (env: LOG_JSON)")
	f.StringVar(&opts.geminiModel, "gemini-model", "", "Gemini model name (env: GEMINI_MODEL)")
	f.StringVar(&opts.geminiBaseURL, "gemini-base-url", "", "Gemini API base URL override (env: GEMINI_BASE_URL)")
	f.IntVar(&opts.maxRetries, "max-retries", 0, "Max retries per stage for transient failures (env: MAX_RETRIES)")
	f.DurationVar(&opts.requestTimeout, "request-timeout", 0, "Per-attempt request timeout (env: REQUEST_TIMEOUT)")
	f.Float64Var(&opts.rateLimitRPS, "rate-limit-rps", 0, "Global request rate limit (RPS), 0 disables (env: RATE_LIMIT_RPS)")

	root.AddCommand(
		newInteractiveCmd(opts),
		newEnrichCmd(opts),
		newSaveCmd(opts),
		newBatchCmd(opts),
		newVersionCmd(),
	)
	return root
}

// setup loads the configuration, applies flags that were set explicitly and
// builds the app.
func (o *rootOptions) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(config.LoadOptions{ConfigPath: o.configPath, EnvFile: o.envFile})
	if err != nil {
		return configErr(err)
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if flags.Changed("log-json") {
		cfg.Log.JSON = o.logJSON
	}
	if flags.Changed("gemini-model") {
		cfg.Gemini.Model = o.geminiModel
	}
	if flags.Changed("gemini-base-url") {
		cfg.Gemini.BaseURL = o.geminiBaseURL
	}
	if flags.Changed("max-retries") {
		cfg.Pipeline.MaxRetries = o.maxRetries
	}
	if flags.Changed("request-timeout") {
		cfg.Pipeline.RequestTimeout = o.requestTimeout
	}
	if flags.Changed("rate-limit-rps") {
		cfg.Pipeline.RateLimitRPS = o.rateLimitRPS
	}
	if err := cfg.Validate(); err != nil {
		return configErr(err)
	}

	l, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		JSON:   cfg.Log.JSON,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return configErr(err)
	}
	o.app = app.New(cfg, l)
	o.app.Logger.Debug("config loaded",
		"model", cfg.Gemini.Model,
		"maxRetries", cfg.Pipeline.MaxRetries,
		"timeout", cfg.Pipeline.RequestTimeout,
		"notion", cfg.NotionEnabled(),
		"sheets", cfg.SheetsEnabled(),
	)
	return nil
}

func notEmpty(name, v string) error {
	if v == "" {
		return &exitError{code: 2, err: fmt.Errorf("--%s is required", name)}
	}
	return nil
}
