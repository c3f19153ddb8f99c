package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	noColor    bool
	envFile    string
)

// rootCmd runs a backup when called without a subcommand
var rootCmd = &cobra.Command{
	Use:   "plurkbackup [flags] [username...]",
	Short: "Back up public Plurk timelines to disk",
	Long: `plurkbackup archives the public timeline of one or more Plurk users.

For every post written by the user it saves the text to a dated text file
and downloads the linked media. Responses of popular posts are archived the
same way. Re-running against the same directory skips media that is already
on disk, so a backup can be refreshed at any time.

Credentials come from (first match wins):
  - Command line config file, environment or .env file
  - Stored credentials ('plurkbackup auth login')
  - An interactive prompt`,
	Example: `  # Back up two users into ./archive
  plurkbackup --output ./archive alice bob

  # Only archive responses of posts with more than 10 favorites
  plurkbackup --threshold 10 alice`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBackup,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.plurkbackup.yaml or ~/.config/plurkbackup/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file used to store credentials")

	rootCmd.SetVersionTemplate(`plurkbackup {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
