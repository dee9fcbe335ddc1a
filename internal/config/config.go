// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config builds the EngineConfig from viper settings and loaded
// secrets. Precedence, highest first: flags bound to viper, environment
// variables (KNOWLEDGE_ENGINE_ prefix), the YAML config file, secrets, then
// the defaults registered by SetDefaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/knowledge-engine/internal/secrets"
	"github.com/pdiddy/knowledge-engine/pkg/types"
)

// Defaults applied before any config file is read.
const (
	DefaultLimit       = 5
	DefaultUserAgent   = "knowledge-engine/0.1"
	DefaultTimeout     = 30 * time.Second
	DefaultTemperature = 0.2
	DefaultMaxTokens   = 1024
	DefaultMaxChars    = 4000
	DefaultDataDir     = "warehouse"
	DefaultAddr        = ":8080"
)

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("default_limit", DefaultLimit)
	v.SetDefault("default_mode", string(types.ModeAll))
	v.SetDefault("log_level", "info")

	v.SetDefault("http.timeout", DefaultTimeout)
	v.SetDefault("http.user_agent", DefaultUserAgent)

	v.SetDefault("encyclopedia.language", "en")
	v.SetDefault("encyclopedia.max_chars", DefaultMaxChars)

	v.SetDefault("literature.tool", "knowledge-engine")
	v.SetDefault("literature.pairing", string(types.PairByPMID))
	v.SetDefault("literature.max_retries", -1)

	v.SetDefault("scraper.mode", string(types.ScrapeHTTP))

	v.SetDefault("warehouse.backend", string(types.WarehouseBigQuery))
	v.SetDefault("warehouse.data_dir", DefaultDataDir)

	v.SetDefault("answer.provider", string(types.ProviderOpenAI))
	v.SetDefault("answer.temperature", DefaultTemperature)
	v.SetDefault("answer.max_tokens", DefaultMaxTokens)

	v.SetDefault("server.addr", DefaultAddr)
}

// Load unmarshals v into an EngineConfig, fills empty credentials from sec
// and validates the result.
func Load(v *viper.Viper, sec secrets.Secrets) (types.EngineConfig, error) {
	var cfg types.EngineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	ApplySecrets(&cfg, sec)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	cfg.DefaultMode, _ = types.ParseMode(string(cfg.DefaultMode))
	return cfg, nil
}

// ApplySecrets fills credential fields that the config left empty. Values
// set in the config file or environment win over secrets.
func ApplySecrets(cfg *types.EngineConfig, sec secrets.Secrets) {
	fill(&cfg.Patents.APIKey, sec.Get(secrets.GoogleAPIKey))
	fill(&cfg.Patents.EngineID, sec.Get(secrets.GoogleSearchEngineID))
	fill(&cfg.Literature.APIKey, sec.Get(secrets.NCBIAPIKey))
	fill(&cfg.Literature.Email, sec.Get(secrets.NCBIEmail))
	fill(&cfg.Warehouse.CredentialsFile, sec.Get(secrets.WarehouseCredentialsFile))
	fill(&cfg.Warehouse.DSN, sec.Get(secrets.PostgresDSN))

	switch cfg.Answer.Provider {
	case types.ProviderOpenAI:
		fill(&cfg.Answer.APIKey, sec.Get(secrets.OpenAIAPIKey))
	case types.ProviderAnthropic:
		fill(&cfg.Answer.APIKey, sec.Get(secrets.AnthropicAPIKey))
	}
}

func fill(dst *string, v string) {
	if strings.TrimSpace(*dst) == "" {
		*dst = v
	}
}

// Validate checks enumerated settings and ranges. Missing credentials are
// not errors here; each component reports NotConfigured when it is used.
func Validate(cfg types.EngineConfig) error {
	if cfg.DefaultLimit < types.MinLimit || cfg.DefaultLimit > types.MaxLimit {
		return fmt.Errorf("default_limit %d out of range %d-%d", cfg.DefaultLimit, types.MinLimit, types.MaxLimit)
	}
	if _, err := types.ParseMode(string(cfg.DefaultMode)); err != nil {
		return fmt.Errorf("default_mode: %w", err)
	}

	switch cfg.Literature.Pairing {
	case types.PairByPMID, types.PairPositional:
	default:
		return fmt.Errorf("literature.pairing %q: use xml or positional", cfg.Literature.Pairing)
	}

	switch cfg.Scraper.Mode {
	case types.ScrapeHTTP, types.ScrapeBrowser:
	default:
		return fmt.Errorf("scraper.mode %q: use http or browser", cfg.Scraper.Mode)
	}

	switch cfg.Warehouse.Backend {
	case types.WarehouseNone, types.WarehouseBigQuery, types.WarehouseSQLite, types.WarehousePostgres:
	default:
		return fmt.Errorf("warehouse.backend %q: use none, bigquery, sqlite, or postgres", cfg.Warehouse.Backend)
	}

	switch cfg.Answer.Provider {
	case types.ProviderOpenAI, types.ProviderAnthropic, types.ProviderOllama:
	default:
		return fmt.Errorf("answer.provider %q: use openai, anthropic, or ollama", cfg.Answer.Provider)
	}

	if cfg.Answer.Temperature < 0 || cfg.Answer.Temperature > 2 {
		return fmt.Errorf("answer.temperature %.2f out of range 0-2", cfg.Answer.Temperature)
	}
	return nil
}
