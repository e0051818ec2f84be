package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("EASYIMPORT_API_URL", "")
	t.Setenv("EASYIMPORT_API_KEY", "")
	path := writeConfig(t, `
[api_settings]
api_url = "https://redmine.example.com"
api_key = "secret"

[import]
dedupe = true
retry_max_elapsed = "5s"
journal = "runs.db"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://redmine.example.com/", cfg.API.URL)
	assert.Equal(t, "secret", cfg.API.Key)
	assert.True(t, cfg.Import.Dedupe)
	assert.Equal(t, "runs.db", cfg.Import.Journal)
	assert.Equal(t, "result.log", cfg.Import.LogFile, "default applies to missing keys")

	d, err := cfg.RetryMaxElapsed()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, d)
	assert.NoError(t, cfg.Validate(path))
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
[api_settings]
api_url = "https://file.example.com/"
api_key = "from-file"
`)
	t.Setenv("EASYIMPORT_API_URL", "https://env.example.com/redmine")
	t.Setenv("EASYIMPORT_API_KEY", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com/redmine/", cfg.API.URL)
	assert.Equal(t, "from-env", cfg.API.Key)
}

func TestLoadMissingFileWritesTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)

	cfg, err := Load(path)
	assert.Nil(t, cfg)
	require.ErrorIs(t, err, ErrTemplateCreated)
	assert.Contains(t, err.Error(), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[api_settings]")
	assert.Contains(t, string(data), `api_url = ""`)
	assert.Contains(t, string(data), `retry_max_elapsed = "30s"`)

	t.Setenv("EASYIMPORT_API_URL", "")
	t.Setenv("EASYIMPORT_API_KEY", "")
	cfg, err = Load(path)
	require.NoError(t, err, "the template itself parses")
	var verr *ValidationError
	require.ErrorAs(t, cfg.Validate(path), &verr)
	assert.Len(t, verr.Problems, 2)
}

func TestLoadMalformed(t *testing.T) {
	path := writeConfig(t, "[api_settings\napi_url = ")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		problems int
	}{
		{"ok", Config{API: APISettings{URL: "http://r/", Key: "k"}}, 0},
		{"missing key", Config{API: APISettings{URL: "http://r/"}}, 1},
		{"bad scheme", Config{API: APISettings{URL: "ftp://r/", Key: "k"}}, 1},
		{"bad duration", Config{API: APISettings{URL: "http://r/", Key: "k"}, Import: ImportSettings{RetryMaxElapsed: "soon"}}, 1},
		{"negative duration", Config{API: APISettings{URL: "http://r/", Key: "k"}, Import: ImportSettings{RetryMaxElapsed: "-1s"}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate("cfg")
			if tt.problems == 0 {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Len(t, verr.Problems, tt.problems)
		})
	}
}

func TestRetryMaxElapsedZero(t *testing.T) {
	cfg := Config{Import: ImportSettings{RetryMaxElapsed: "0"}}
	d, err := cfg.RetryMaxElapsed()
	require.NoError(t, err)
	assert.Zero(t, d)

	d, err = (&Config{}).RetryMaxElapsed()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)
}

func TestSetAndGet(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Set("api_settings.api_url", "https://r.example.com"))
	require.NoError(t, cfg.Set("import.dedupe", "true"))

	got, err := cfg.Get("api_settings.api_url")
	require.NoError(t, err)
	assert.Equal(t, "https://r.example.com/", got)

	got, err = cfg.Get("import.dedupe")
	require.NoError(t, err)
	assert.Equal(t, "true", got)

	assert.Error(t, cfg.Set("import.dedupe", "maybe"))
	assert.ErrorContains(t, cfg.Set("import.colour", "red"), "unknown config key")
	_, err = cfg.Get("nope")
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("EASYIMPORT_API_URL", "")
	t.Setenv("EASYIMPORT_API_KEY", "")
	path := filepath.Join(t.TempDir(), FileName)
	cfg := Defaults()
	cfg.API = APISettings{URL: "https://r.example.com/", Key: "k"}
	cfg.Import.Journal = "j.db"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadNormalizesAPIURL(t *testing.T) {
	t.Setenv("EASYIMPORT_API_URL", "")
	path := writeConfig(t, "[api_settings]\napi_url = \" http://r \"\napi_key = \"k\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://r/", cfg.API.URL)
}

func TestKeysHaveDescriptions(t *testing.T) {
	seen := map[string]bool{}
	for _, k := range Keys {
		assert.NotEmpty(t, k.Description, k.Name)
		assert.False(t, seen[k.Name], "duplicate key %s", k.Name)
		seen[k.Name] = true
		if k.Default != "" {
			assert.NoError(t, ValidateKey(k.Name, k.Default))
		}
	}
}
