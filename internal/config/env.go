package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type envSource func(key string) string

func (e envSource) apply(cfg *Config) error {
	e.envString(&cfg.Gemini.APIKey, "API_KEY")
	e.envString(&cfg.Gemini.APIKey, "GEMINI_API_KEY")
	e.envString(&cfg.Gemini.Model, "GEMINI_MODEL")
	e.envString(&cfg.Gemini.BaseURL, "GEMINI_BASE_URL")
	e.envString(&cfg.Notion.Token, "NOTION_TOKEN")
	e.envString(&cfg.Notion.DatabaseID, "NOTION_DATABASE_ID")
	e.envString(&cfg.Sheets.SpreadsheetID, "GOOGLE_SHEETS_SPREADSHEET_ID")
	e.envString(&cfg.Sheets.Range, "GOOGLE_SHEETS_RANGE")
	e.envString(&cfg.Sheets.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")
	e.envString(&cfg.Log.Level, "LOG_LEVEL")

	for _, err := range []error{
		e.envInt(&cfg.Pipeline.Workers, "WORKERS"),
		e.envInt(&cfg.Pipeline.MaxRetries, "MAX_RETRIES"),
		e.envDuration(&cfg.Pipeline.RequestTimeout, "REQUEST_TIMEOUT"),
		e.envFloat(&cfg.Pipeline.RateLimitRPS, "RATE_LIMIT_RPS"),
		e.envBool(&cfg.Pipeline.FailFast, "FAIL_FAST"),
		e.envInt(&cfg.Cache.MaxEntries, "CACHE_MAX_ENTRIES"),
		e.envDuration(&cfg.Cache.TTL, "CACHE_TTL"),
		e.envDuration(&cfg.Lookup.Latency, "LOOKUP_LATENCY"),
		e.envDuration(&cfg.UI.ToastTTL, "TOAST_TTL"),
		e.envBool(&cfg.UI.Accessible, "ACCESSIBLE"),
		e.envBool(&cfg.Log.JSON, "LOG_JSON"),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

func (e envSource) get(varName string) string {
	return strings.TrimSpace(e(varName))
}

func (e envSource) envString(dst *string, varName string) {
	if v := e.get(varName); v != "" {
		*dst = v
	}
}

func (e envSource) envInt(dst *int, varName string) error {
	v := e.get(varName)
	if v == "" {
		return nil
	}
	out, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	*dst = out
	return nil
}

func (e envSource) envFloat(dst *float64, varName string) error {
	v := e.get(varName)
	if v == "" {
		return nil
	}
	out, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	*dst = out
	return nil
}

func (e envSource) envDuration(dst *time.Duration, varName string) error {
	v := e.get(varName)
	if v == "" {
		return nil
	}
	out, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	*dst = out
	return nil
}

func (e envSource) envBool(dst *bool, varName string) error {
	v := e.get(varName)
	if v == "" {
		return nil
	}
	out, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	*dst = out
	return nil
}
