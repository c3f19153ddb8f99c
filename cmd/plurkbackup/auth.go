package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"plurkbackup/pkg/auth"
	"plurkbackup/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Plurk API credentials",
	Long: `Manage stored Plurk API credentials.

Credentials are stored in the first available of:
  - System keychain
  - Encrypted file with PBKDF2 key derivation
  - The dotenv file given by --env-file`,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store Plurk API credentials",
	Long: `Prompt for the OAuth consumer key pair and, optionally, an access token
pair, then store them under the profile given by --profile.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored credentials",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored credentials with secrets masked",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(statusCmd)

	authCmd.PersistentFlags().StringVarP(&profile, "profile", "p", auth.DefaultProfile, "credential profile name")
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager(envFile)
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	out := cmd.OutOrStdout()
	auth.ShowAppKeyGuide(out)

	creds := &auth.Credentials{Profile: profile}
	if err := auth.NewPrompter(os.Stdin, out).Fill(creds); err != nil {
		return err
	}
	if err := manager.Store(creds); err != nil {
		return err
	}

	ui.NewPrinter(out, noColor).Info("Credentials stored for profile", creds.Profile)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager(envFile)
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	if err := manager.Delete(profile); err != nil {
		return err
	}

	ui.NewPrinter(cmd.OutOrStdout(), noColor).Info("Credentials removed for profile", profile)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager(envFile)
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	list, err := manager.List()
	if err != nil {
		return err
	}

	p := ui.NewPrinter(cmd.OutOrStdout(), noColor)
	if len(list) == 0 {
		p.Info("Credentials", "none stored; run 'plurkbackup auth login'")
		return nil
	}
	for _, c := range list {
		s := auth.Sanitize(c)
		token := "not set"
		if c.AccessToken != "" {
			token = s.AccessToken
		}
		modified := "unknown"
		if !c.LastModified.IsZero() {
			modified = c.LastModified.Format(time.RFC3339)
		}
		p.Info(s.Profile, fmt.Sprintf("consumer key %s, access token %s, updated %s", s.ConsumerKey, token, modified))
	}
	return nil
}
