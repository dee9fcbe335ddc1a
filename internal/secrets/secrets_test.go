// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T) string
		want   Secrets
		errMsg string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, GoogleAPIKey, "  gk_abc123  \n")
				writeFile(t, dir, GoogleSearchEngineID, "cx-789")
				writeFile(t, dir, NCBIEmail, "user@example.com\n")
				return dir
			},
			want: Secrets{
				GoogleAPIKey:         "gk_abc123",
				GoogleSearchEngineID: "cx-789",
				NCBIEmail:            "user@example.com",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: Secrets{},
		},
		{
			name: "skips empty files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, OpenAIAPIKey, "valid-key")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				return dir
			},
			want: Secrets{OpenAIAPIKey: "valid-key"},
		},
		{
			name: "skips dotfiles",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				writeFile(t, dir, GoogleAPIKey, "gk_real")
				return dir
			},
			want: Secrets{GoogleAPIKey: "gk_real"},
		},
		{
			name: "skips subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, AnthropicAPIKey, "ak_123")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: Secrets{AnthropicAPIKey: "ak_123"},
		},
		{
			name: "returns empty map for empty directory",
			setup: func(t *testing.T) string {
				return t.TempDir()
			},
			want: Secrets{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := tt.setup(t)
			got, err := Load(dir, &bytes.Buffer{})
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read files without permission bits")
	}
	dir := t.TempDir()
	writeFile(t, dir, "good-key", "value123")

	badPath := filepath.Join(dir, "bad-key")
	require.NoError(t, os.WriteFile(badPath, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(badPath, 0o644) })

	var warn bytes.Buffer
	got, err := Load(dir, &warn)
	require.NoError(t, err)
	assert.Equal(t, "value123", got.Get("good-key"))
	_, hasBad := got["bad-key"]
	assert.False(t, hasBad, "unreadable file should not appear in result")
	assert.Contains(t, warn.String(), "warning: could not read secret bad-key")
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "GOOGLE_API_KEY=gk_env\nOPENAI_API_KEY=\"sk-env\"\n# comment\nNCBI_EMAIL=a@b.org\nEMPTY=\n")

	got, err := LoadEnvFile(filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Equal(t, Secrets{
		GoogleAPIKey: "gk_env",
		OpenAIAPIKey: "sk-env",
		NCBIEmail:    "a@b.org",
	}, got)
}

func TestLoadEnvFileMissing(t *testing.T) {
	got, err := LoadEnvFile(filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMergeKeepsExisting(t *testing.T) {
	s := Secrets{GoogleAPIKey: "from-dir"}
	s.Merge(Secrets{GoogleAPIKey: "from-env", OpenAIAPIKey: "sk"})

	assert.Equal(t, "from-dir", s.Get(GoogleAPIKey))
	assert.Equal(t, "sk", s.Get(OpenAIAPIKey))
	assert.Equal(t, []string{GoogleAPIKey, OpenAIAPIKey}, s.Keys())
	assert.Equal(t, "", s.Get(PostgresDSN))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
