// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files
// and from an optional dotenv file. Each file in the directory represents one secret:
// the filename is the key name and the file contents (trimmed) are the value.
//
// Supported key files: google-api-key, google-search-engine-id, openai-api-key,
// anthropic-api-key, ncbi-api-key, ncbi-email, warehouse-credentials-file, postgres-dsn.
package secrets

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// Secret key names.
const (
	GoogleAPIKey             = "google-api-key"
	GoogleSearchEngineID     = "google-search-engine-id"
	OpenAIAPIKey             = "openai-api-key"
	AnthropicAPIKey          = "anthropic-api-key"
	NCBIAPIKey               = "ncbi-api-key"
	NCBIEmail                = "ncbi-email"
	WarehouseCredentialsFile = "warehouse-credentials-file"
	PostgresDSN              = "postgres-dsn"
)

// Secrets maps key names to values.
type Secrets map[string]string

// Get returns the value for key, or "" when absent.
func (s Secrets) Get(key string) string {
	return s[key]
}

// Keys returns the loaded key names in sorted order. Values are never listed.
func (s Secrets) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge copies entries from other that s does not already hold.
func (s Secrets) Merge(other Secrets) {
	for k, v := range other {
		if _, ok := s[k]; !ok {
			s[k] = v
		}
	}
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on warn but do not abort.
func Load(dir string, warn io.Writer) (Secrets, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Secrets{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(Secrets)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(warn, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// LoadEnvFile reads a dotenv file. Variable names are normalized to key
// names, so GOOGLE_API_KEY becomes google-api-key. A missing file yields an
// empty map.
func LoadEnvFile(path string) (Secrets, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Secrets{}, nil
		}
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}

	secrets := make(Secrets, len(vars))
	for name, value := range vars {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		secrets[normalizeKey(name)] = value
	}
	return secrets, nil
}

func normalizeKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
}
