package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/steveyegge/easyimport/internal/config"
	"github.com/steveyegge/easyimport/internal/debug"
	"github.com/steveyegge/easyimport/internal/ui"
)

const configHint = "Set api_url and api_key in the file, or run 'easyimport config init'"

// mustLoadConfig loads and validates the config file, exiting with a hint
// when it is missing or incomplete.
func mustLoadConfig(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, config.ErrTemplateCreated) {
			FatalErrorWithHint(err.Error(), configHint)
		}
		FatalError("%v", err)
	}
	if err := cfg.Validate(path); err != nil {
		FatalErrorWithHint(err.Error(), configHint)
	}
	return cfg
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the easyimport config file",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), resolveConfigPath())
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective settings (environment overrides applied)",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		path := resolveConfigPath()
		cfg, err := config.Load(path)
		if err != nil {
			if errors.Is(err, config.ErrTemplateCreated) {
				FatalErrorWithHint(err.Error(), configHint)
			}
			FatalError("%v", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), renderConfig(path, cfg))
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one key in the config file",
	Long: `Set one key in the config file. Known keys:

` + keyHelp(),
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		path := resolveConfigPath()
		cfg, err := loadOrDefaults(path)
		if err != nil {
			FatalError("%v", err)
		}
		if err := cfg.Set(args[0], args[1]); err != nil {
			FatalError("%v", err)
		}
		if err := config.Save(path, cfg); err != nil {
			FatalError("%v", err)
		}
		debug.PrintNormal("%s Set %s in %s\n", ui.RenderPass(ui.IconPass), args[0], path)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create or update the config file",
	Long: `Create or update the config file.

On a terminal this asks for the Redmine URL and API key. Otherwise pass
them with --url and --key, or edit the written template by hand.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		path := resolveConfigPath()
		cfg, err := loadOrDefaults(path)
		if err != nil {
			FatalError("%v", err)
		}

		url, _ := cmd.Flags().GetString("url")
		key, _ := cmd.Flags().GetString("key")
		if url != "" {
			cfg.API.URL = url
		}
		if key != "" {
			cfg.API.Key = key
		}

		if url == "" && key == "" && ui.IsStdinTerminal() {
			if err := runConfigForm(cfg); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					fmt.Fprintln(os.Stderr, "Config init canceled.")
					os.Exit(0)
				}
				FatalError("form error: %v", err)
			}
		}

		if err := cfg.Set("api_settings.api_url", cfg.API.URL); err != nil {
			FatalError("%v", err)
		}
		if err := config.Save(path, cfg); err != nil {
			FatalError("%v", err)
		}

		debug.PrintNormal("%s Wrote %s\n", ui.RenderPass(ui.IconPass), path)
		if err := cfg.Validate(path); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", ui.RenderWarn(ui.IconWarn), err)
		}
	},
}

func init() {
	configInitCmd.Flags().String("url", "", "Redmine base URL")
	configInitCmd.Flags().String("key", "", "Redmine API key")

	configCmd.AddCommand(configPathCmd, configShowCmd, configSetCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}

// loadOrDefaults reads path when it exists and starts from defaults when
// it does not, so init and set can create the file.
func loadOrDefaults(path string) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return config.Defaults(), nil
	}
	return config.Load(path)
}

func runConfigForm(cfg *config.Config) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Redmine URL").
				Description("Base address of the server").
				Placeholder("https://redmine.example.com/").
				Value(&cfg.API.URL).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("url is required")
					}
					return config.ValidateKey("api_settings.api_url", strings.TrimSpace(s))
				}),

			huh.NewInput().
				Title("API key").
				Description("My account > API access key").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.API.Key).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("api key is required")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Reuse existing issues with the same subject?").
				Description("Off creates every issue line, even duplicates").
				Value(&cfg.Import.Dedupe),

			huh.NewInput().
				Title("Journal").
				Description("SQLite file recording each run (optional)").
				Value(&cfg.Import.Journal),
		),
	).WithTheme(huh.ThemeDracula())

	if err := form.Run(); err != nil {
		return err
	}
	cfg.API.URL = strings.TrimSpace(cfg.API.URL)
	cfg.API.Key = strings.TrimSpace(cfg.API.Key)
	return nil
}

func renderConfig(path string, cfg *config.Config) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", ui.RenderCategory("config"), ui.RenderMuted(path))
	for _, k := range config.Keys {
		value, _ := cfg.Get(k.Name)
		if k.Secret && value != "" {
			value = maskSecret(value)
		}
		if value == "" {
			value = ui.RenderMuted("(empty)")
		}
		source := ""
		if k.EnvVar != "" && os.Getenv(k.EnvVar) != "" {
			source = ui.RenderMuted(" (from $" + k.EnvVar + ")")
		}
		fmt.Fprintf(&b, "  %-26s %s%s\n", k.Name, value, source)
	}
	return b.String()
}

// maskSecret keeps the last four characters.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

func keyHelp() string {
	var b strings.Builder
	for _, k := range config.Keys {
		fmt.Fprintf(&b, "  %-26s %s\n", k.Name, k.Description)
	}
	return b.String()
}
