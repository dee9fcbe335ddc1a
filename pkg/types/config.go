// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// HTTPConfig holds shared HTTP settings used by every component that makes
// network requests.
type HTTPConfig struct {
	// Timeout bounds each request. Zero leaves requests unbounded.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "knowledge-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// PatentSearchConfig configures the web search adapter restricted to patents.
type PatentSearchConfig struct {
	// APIKey is the Google API key.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// EngineID is the programmable search engine identifier (cx) that scopes
	// results to patent pages.
	EngineID string `json:"engine_id" yaml:"engine_id" mapstructure:"engine_id"`

	// Endpoint overrides the API base URL.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" mapstructure:"endpoint"`
}

// EncyclopediaConfig configures the Wikipedia adapter.
type EncyclopediaConfig struct {
	// Language is the Wikipedia language edition (default "en").
	Language string `json:"language" yaml:"language" mapstructure:"language"`

	// MaxChars truncates each page extract (default 4000).
	MaxChars int `json:"max_chars" yaml:"max_chars" mapstructure:"max_chars"`

	// Endpoint overrides the MediaWiki API URL.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" mapstructure:"endpoint"`
}

// PairingMode selects how fetched abstracts are matched to PubMed IDs.
type PairingMode string

const (
	// PairByPMID fetches XML and matches each abstract to its PMID element.
	PairByPMID PairingMode = "xml"

	// PairPositional fetches plain text, splits it on blank lines and zips
	// segments with IDs in order.
	PairPositional PairingMode = "positional"
)

// LiteratureConfig configures the PubMed adapter.
type LiteratureConfig struct {
	// Email identifies the caller to NCBI.
	Email string `json:"email" yaml:"email" mapstructure:"email"`

	// APIKey raises the NCBI rate limit from 3 to 10 requests per second.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Tool is the tool name reported to NCBI.
	Tool string `json:"tool" yaml:"tool" mapstructure:"tool"`

	Pairing PairingMode `json:"pairing" yaml:"pairing" mapstructure:"pairing"`

	// MaxRetries is the number of retries on HTTP 429. Negative disables
	// retries.
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// Endpoint overrides the E-utilities base URL.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" mapstructure:"endpoint"`
}

// ScrapeMode selects how patent pages are fetched before text extraction.
type ScrapeMode string

const (
	ScrapeHTTP    ScrapeMode = "http"
	ScrapeBrowser ScrapeMode = "browser"
)

// ScraperConfig configures the content scraper.
type ScraperConfig struct {
	Mode ScrapeMode `json:"mode" yaml:"mode" mapstructure:"mode"`

	// MaxChars truncates scraped text. Zero keeps everything.
	MaxChars int `json:"max_chars" yaml:"max_chars" mapstructure:"max_chars"`

	// ChromePath points at the Chrome binary for browser mode.
	ChromePath string `json:"chrome_path,omitempty" yaml:"chrome_path,omitempty" mapstructure:"chrome_path"`
}

// WarehouseTarget is the hierarchical location of the results table:
// project, then dataset, then table.
type WarehouseTarget struct {
	Project string `json:"project" yaml:"project" mapstructure:"project"`
	Dataset string `json:"dataset" yaml:"dataset" mapstructure:"dataset"`
	Table   string `json:"table" yaml:"table" mapstructure:"table"`
}

// ErrTargetIncomplete reports a warehouse target with a missing part.
var ErrTargetIncomplete = errors.New("warehouse target incomplete")

// Validate reports every missing part of the target.
func (t WarehouseTarget) Validate() error {
	var missing []string
	if strings.TrimSpace(t.Project) == "" {
		missing = append(missing, "project")
	}
	if strings.TrimSpace(t.Dataset) == "" {
		missing = append(missing, "dataset")
	}
	if strings.TrimSpace(t.Table) == "" {
		missing = append(missing, "table")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: provide %s", ErrTargetIncomplete, strings.Join(missing, ", "))
	}
	return nil
}

func (t WarehouseTarget) String() string {
	return t.Project + "." + t.Dataset + "." + t.Table
}

// WarehouseBackend names a warehouse implementation.
type WarehouseBackend string

const (
	WarehouseNone     WarehouseBackend = "none"
	WarehouseBigQuery WarehouseBackend = "bigquery"
	WarehouseSQLite   WarehouseBackend = "sqlite"
	WarehousePostgres WarehouseBackend = "postgres"
)

// WarehouseConfig configures the warehouse sink.
type WarehouseConfig struct {
	Backend WarehouseBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	Target WarehouseTarget `json:"target" yaml:"target" mapstructure:",squash"`

	// CredentialsFile is a service account JSON file for BigQuery. Empty
	// uses application default credentials.
	CredentialsFile string `json:"credentials_file,omitempty" yaml:"credentials_file,omitempty" mapstructure:"credentials_file"`

	// DataDir holds SQLite databases, one directory per project.
	DataDir string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`

	// DSN is the Postgres connection string. The project overrides its
	// database name.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty" mapstructure:"dsn"`

	// Debug logs every SQL statement (Postgres).
	Debug bool `json:"debug" yaml:"debug" mapstructure:"debug"`
}

// AnswerProvider names a language model backend.
type AnswerProvider string

const (
	ProviderOpenAI    AnswerProvider = "openai"
	ProviderAnthropic AnswerProvider = "anthropic"
	ProviderOllama    AnswerProvider = "ollama"
)

// AnswerConfig configures the answer generator.
type AnswerConfig struct {
	Provider AnswerProvider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the fixed model identifier. Empty picks the provider default
	// ("gpt-3.5-turbo" for openai).
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL overrides the provider endpoint (OpenAI-compatible gateways,
	// a remote Ollama server).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// Temperature is the sampling temperature (default 0.2).
	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`

	// MaxTokens caps the response length where the provider requires it.
	MaxTokens int64 `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ServerConfig configures the web form.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// EngineConfig groups every component configuration. It is built once at
// startup and passed to constructors; nothing reads it after that.
type EngineConfig struct {
	HTTP         HTTPConfig         `json:"http" yaml:"http" mapstructure:"http"`
	Patents      PatentSearchConfig `json:"patents" yaml:"patents" mapstructure:"patents"`
	Encyclopedia EncyclopediaConfig `json:"encyclopedia" yaml:"encyclopedia" mapstructure:"encyclopedia"`
	Literature   LiteratureConfig   `json:"literature" yaml:"literature" mapstructure:"literature"`
	Scraper      ScraperConfig      `json:"scraper" yaml:"scraper" mapstructure:"scraper"`
	Warehouse    WarehouseConfig    `json:"warehouse" yaml:"warehouse" mapstructure:"warehouse"`
	Answer       AnswerConfig       `json:"answer" yaml:"answer" mapstructure:"answer"`
	Server       ServerConfig       `json:"server" yaml:"server" mapstructure:"server"`

	// DefaultLimit is the result count used when a submission omits one.
	DefaultLimit int `json:"default_limit" yaml:"default_limit" mapstructure:"default_limit"`

	// DefaultMode is the source mode used when a submission omits one.
	DefaultMode SourceMode `json:"default_mode" yaml:"default_mode" mapstructure:"default_mode"`

	// LogLevel is a zerolog level name.
	LogLevel string `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
}
