package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"plurkbackup/pkg/auth"
	"plurkbackup/pkg/config"
	"plurkbackup/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage plurkbackup configuration files.

Configuration is loaded from (highest priority first):
  - Command line flags
  - Environment variables (PLURKBACKUP_*, CONSUMER_KEY, ...)
  - .env file
  - Configuration file
  - Default values`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default values",
	Long: `Write a configuration file containing every option at its default value.

The file is created as '.plurkbackup.yaml' in the current directory unless
another path is given with --config. Credentials are left empty; store them
with 'plurkbackup auth login' instead.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  `Show the configuration after merging every source. Credentials are masked.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = ".plurkbackup.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}

	p := ui.NewPrinter(cmd.OutOrStdout(), noColor)
	p.Info("Configuration file created", path)
	fmt.Fprintln(cmd.OutOrStdout(), "\nNext steps:")
	fmt.Fprintln(cmd.OutOrStdout(), "1. Run 'plurkbackup auth login' to store your Plurk API credentials")
	fmt.Fprintln(cmd.OutOrStdout(), "2. Run 'plurkbackup config validate' to check the configuration")
	fmt.Fprintln(cmd.OutOrStdout(), "3. Start a backup with 'plurkbackup <username>'")
	return nil
}

// maskedConfig returns a copy of cfg safe to print
func maskedConfig(cfg *config.Config) config.Config {
	display := *cfg
	masked := auth.Sanitize(auth.FromConfig(cfg.Plurk))
	display.Plurk.ConsumerKey = masked.ConsumerKey
	display.Plurk.ConsumerSecret = masked.ConsumerSecret
	display.Plurk.AccessToken = masked.AccessToken
	display.Plurk.AccessTokenSecret = masked.AccessTokenSecret
	return display
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, envFile, nil)
	if err != nil {
		return err
	}

	display := maskedConfig(cfg)
	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, envFile, nil)
	if err != nil {
		return err
	}

	var problems []error
	if cfg.Logging.File != "" {
		if f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); err != nil {
			problems = append(problems, fmt.Errorf("log file is not writable: %w", err))
		} else {
			f.Close()
		}
	}
	if err := os.MkdirAll(cfg.Output.BaseDirectory, cfg.Output.DirMode()); err != nil {
		problems = append(problems, fmt.Errorf("cannot create output directory: %w", err))
	}
	if err := errors.Join(problems...); err != nil {
		return err
	}

	p := ui.NewPrinter(cmd.OutOrStdout(), noColor)
	if !cfg.Plurk.HasCredentials() {
		p.Info("Warning", "no API credentials in config or environment; stored credentials will be tried at run time")
	}
	p.Info("Configuration", "valid")
	p.Info("Output directory", cfg.Output.BaseDirectory)
	p.Info("Workers", fmt.Sprint(cfg.Crawl.Workers))
	p.Info("Concurrent downloads", fmt.Sprint(cfg.Download.ConcurrentDownloads))
	p.Info("Favorite threshold", fmt.Sprint(cfg.Crawl.FavoriteThreshold))
	p.Info("Log level", cfg.Logging.Level)
	return nil
}
