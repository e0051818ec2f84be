// Package config loads the easyimport settings file.
//
// The file lives at ~/.redmine_easyimport by default and is TOML:
//
//	[api_settings]
//	api_url = "https://redmine.example.com/"
//	api_key = "..."
//
//	[import]
//	dedupe = false
//	retry_max_elapsed = "30s"
//	log_file = "result.log"
//	journal = ""
//
// EASYIMPORT_API_URL and EASYIMPORT_API_KEY override the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/steveyegge/easyimport/internal/redmine"
)

// FileName is the name of the config file in the user's home directory.
const FileName = ".redmine_easyimport"

// ErrTemplateCreated is returned by Load when the file did not exist and an
// empty template was written in its place.
var ErrTemplateCreated = errors.New("config file created, fill in api_url and api_key")

// Config is the parsed settings file.
type Config struct {
	API    APISettings    `mapstructure:"api_settings" toml:"api_settings"`
	Import ImportSettings `mapstructure:"import" toml:"import"`
}

// APISettings locates and authenticates against the Redmine server.
type APISettings struct {
	URL string `mapstructure:"api_url" toml:"api_url"`
	Key string `mapstructure:"api_key" toml:"api_key"`
}

// ImportSettings tunes an import run. Command-line flags take precedence.
type ImportSettings struct {
	Dedupe          bool   `mapstructure:"dedupe" toml:"dedupe"`
	RetryMaxElapsed string `mapstructure:"retry_max_elapsed" toml:"retry_max_elapsed"`
	LogFile         string `mapstructure:"log_file" toml:"log_file"`
	Journal         string `mapstructure:"journal" toml:"journal"`
}

// ValidationError lists every problem found in a Config.
type ValidationError struct {
	Path     string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Path, strings.Join(e.Problems, "; "))
}

// DefaultPath returns ~/.redmine_easyimport.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, FileName), nil
}

// Defaults returns a Config holding the default value of every key.
func Defaults() *Config {
	return &Config{
		Import: ImportSettings{
			RetryMaxElapsed: LookupKey("import.retry_max_elapsed").Default,
			LogFile:         LookupKey("import.log_file").Default,
		},
	}
}

// Load reads path, applies environment overrides and normalizes the API
// URL. A missing file is replaced by a template and ErrTemplateCreated is
// returned. Load does not validate; call Validate before using the result.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		if err := WriteTemplate(path); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", ErrTemplateCreated, path)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	for _, k := range Keys {
		if k.Default != "" {
			v.SetDefault(k.Name, k.Default)
		}
		if k.EnvVar != "" {
			if err := v.BindEnv(k.Name, k.EnvVar); err != nil {
				return nil, fmt.Errorf("failed to bind %s: %w", k.EnvVar, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	cfg.API.URL = redmine.NormalizeBaseURL(cfg.API.URL)
	return &cfg, nil
}

// Validate reports missing credentials and malformed values. path is only
// used in the error message.
func (c *Config) Validate(path string) error {
	var problems []string
	if c.API.URL == "" {
		problems = append(problems, "api_settings.api_url is empty")
	} else if err := ValidateKey("api_settings.api_url", c.API.URL); err != nil {
		problems = append(problems, err.Error())
	}
	if c.API.Key == "" {
		problems = append(problems, "api_settings.api_key is empty")
	}
	if c.Import.RetryMaxElapsed != "" {
		if err := ValidateKey("import.retry_max_elapsed", c.Import.RetryMaxElapsed); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Path: path, Problems: problems}
	}
	return nil
}

// RetryMaxElapsed parses import.retry_max_elapsed. An empty value means the
// default.
func (c *Config) RetryMaxElapsed() (time.Duration, error) {
	raw := c.Import.RetryMaxElapsed
	if raw == "" {
		raw = LookupKey("import.retry_max_elapsed").Default
	}
	return time.ParseDuration(raw)
}

// Get returns the string form of a dotted key.
func (c *Config) Get(name string) (string, error) {
	switch name {
	case "api_settings.api_url":
		return c.API.URL, nil
	case "api_settings.api_key":
		return c.API.Key, nil
	case "import.dedupe":
		return strconv.FormatBool(c.Import.Dedupe), nil
	case "import.retry_max_elapsed":
		return c.Import.RetryMaxElapsed, nil
	case "import.log_file":
		return c.Import.LogFile, nil
	case "import.journal":
		return c.Import.Journal, nil
	}
	return "", ValidateKey(name, "")
}

// Set validates value and stores it under a dotted key.
func (c *Config) Set(name, value string) error {
	if err := ValidateKey(name, value); err != nil {
		return err
	}
	switch name {
	case "api_settings.api_url":
		c.API.URL = redmine.NormalizeBaseURL(value)
	case "api_settings.api_key":
		c.API.Key = value
	case "import.dedupe":
		b, _ := strconv.ParseBool(value)
		c.Import.Dedupe = b
	case "import.retry_max_elapsed":
		c.Import.RetryMaxElapsed = value
	case "import.log_file":
		c.Import.LogFile = value
	case "import.journal":
		c.Import.Journal = value
	}
	return nil
}

// WriteTemplate writes a config file with default import settings and empty
// credentials. The file is created with mode 0600 since it will hold an
// API key.
func WriteTemplate(path string) error {
	return Save(path, Defaults())
}

// Save encodes cfg as TOML to path, replacing any existing file.
func Save(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) // #nosec G304 - path chosen by the user
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to encode config file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
