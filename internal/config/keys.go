package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Key describes one setting of the config file.
type Key struct {
	Name        string // dotted key (e.g. "api_settings.api_url")
	Description string
	EnvVar      string // overriding environment variable, if any
	Secret      bool   // masked by "config show"
	Default     string
	Validate    func(string) error
}

// Keys lists every setting easyimport reads, in file order.
var Keys = []Key{
	{
		Name:        "api_settings.api_url",
		Description: "Base URL of the Redmine server",
		EnvVar:      "EASYIMPORT_API_URL",
		Validate:    validateURL,
	},
	{
		Name:        "api_settings.api_key",
		Description: "Redmine REST API key (My account > API access key)",
		EnvVar:      "EASYIMPORT_API_KEY",
		Secret:      true,
	},
	{
		Name:        "import.dedupe",
		Description: "Reuse an existing issue with the same subject instead of creating one",
		Default:     "false",
		Validate:    validateBool,
	},
	{
		Name:        "import.retry_max_elapsed",
		Description: "How long to keep retrying transient API failures (0 disables retries)",
		Default:     "30s",
		Validate:    validateDuration,
	},
	{
		Name:        "import.log_file",
		Description: "File every log entry is appended to (empty disables the file)",
		Default:     "result.log",
	},
	{
		Name:        "import.journal",
		Description: "SQLite journal of runs and created issues (empty disables it)",
	},
}

var keyMap map[string]*Key

func init() {
	keyMap = make(map[string]*Key, len(Keys))
	for i := range Keys {
		keyMap[Keys[i].Name] = &Keys[i]
	}
}

// LookupKey returns the definition of name, or nil if it is not a known key.
func LookupKey(name string) *Key {
	return keyMap[name]
}

// ValidateKey checks that name is known and value is acceptable for it.
func ValidateKey(name, value string) error {
	k := keyMap[name]
	if k == nil {
		known := make([]string, 0, len(Keys))
		for _, k := range Keys {
			known = append(known, k.Name)
		}
		return fmt.Errorf("unknown config key %q; valid keys: %s", name, strings.Join(known, ", "))
	}
	if k.Validate != nil {
		if err := k.Validate(value); err != nil {
			return fmt.Errorf("invalid value for %s: %w", name, err)
		}
	}
	return nil
}

func validateURL(value string) error {
	if value == "" {
		return nil
	}
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("not a URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", value)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", value)
	}
	return nil
}

func validateBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false, got %q", value)
	}
	return nil
}

func validateDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("must be a duration like 30s or 2m, got %q", value)
	}
	if d < 0 {
		return fmt.Errorf("must not be negative, got %q", value)
	}
	return nil
}
