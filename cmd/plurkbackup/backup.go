package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"plurkbackup/internal/downloader"
	"plurkbackup/pkg/auth"
	"plurkbackup/pkg/config"
	"plurkbackup/pkg/crawler"
	"plurkbackup/pkg/logger"
	"plurkbackup/pkg/plurk"
	"plurkbackup/pkg/retry"
	"plurkbackup/pkg/ui"
)

const usernamePrompt = "Please enter at least one username OR several usernames with space separated:"

var (
	// Backup flags
	outputDir  string
	workers    int
	concurrent int
	threshold  int
	pageSize   int
	profile    string
)

func init() {
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "", "base directory; each user gets a subdirectory (default: current directory)")
	rootCmd.Flags().IntVarP(&workers, "workers", "w", 0, "posts processed in parallel (default: number of CPUs)")
	rootCmd.Flags().IntVar(&concurrent, "concurrent", 0, "concurrent media downloads per post (default 8)")
	rootCmd.Flags().IntVar(&threshold, "threshold", -1, "archive responses only for posts with more favorites than this; -1 archives all")
	rootCmd.Flags().IntVar(&pageSize, "page-size", 0, "posts requested per timeline page (default 30)")
	rootCmd.Flags().StringVarP(&profile, "profile", "p", auth.DefaultProfile, "stored credential profile")
}

// commandFlags collects the flags the user actually set
func commandFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if changed("output") {
		flags["output"] = outputDir
	}
	if changed("workers") {
		flags["workers"] = workers
	}
	if changed("concurrent") {
		flags["concurrent"] = concurrent
	}
	if changed("threshold") {
		flags["threshold"] = threshold
	}
	if changed("page-size") {
		flags["page-size"] = pageSize
	}
	if changed("log-level") {
		flags["log-level"] = logLevel
	}
	if changed("no-color") {
		flags["no-color"] = noColor
	}
	return flags
}

// parseUsernames splits every argument on whitespace and drops duplicates,
// keeping the first occurrence
func parseUsernames(args []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range args {
		for _, u := range strings.Fields(a) {
			if !seen[u] {
				seen[u] = true
				out = append(out, u)
			}
		}
	}
	return out
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// resolveCredentials fills missing credentials from the credential stores,
// then from the prompt when one is available. Prompted values may be saved
// to the dotenv store.
func resolveCredentials(cfg *config.Config, manager *auth.Manager, prompter *auth.Prompter, interactive bool, out io.Writer) error {
	if cfg.Plurk.HasCredentials() {
		return nil
	}

	if manager != nil {
		if creds, err := manager.Retrieve(profile); err == nil {
			creds.ApplyTo(&cfg.Plurk)
			logger.WithField("profile", creds.Profile).Info("Using stored credentials")
		}
	}
	if cfg.Plurk.HasCredentials() {
		return nil
	}

	if !interactive {
		return errors.New("missing Plurk API credentials: run 'plurkbackup auth login' or set CONSUMER_KEY and CONSUMER_SECRET")
	}

	auth.ShowAppKeyGuide(out)
	creds := auth.FromConfig(cfg.Plurk)
	if err := prompter.Fill(creds); err != nil {
		return err
	}
	creds.ApplyTo(&cfg.Plurk)

	save, err := prompter.Confirm(fmt.Sprintf("Save these credentials to %s?", envFile))
	if err != nil {
		return err
	}
	if save {
		if err := auth.NewEnvFileStore(envFile).Store(creds); err != nil {
			return fmt.Errorf("failed to save credentials: %w", err)
		}
	}
	return nil
}

func runBackup(cmd *cobra.Command, args []string) error {
	start := time.Now()

	cfg, err := config.Load(configFile, envFile, commandFlags(cmd))
	if err != nil {
		return err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Debug("plurkbackup starting")

	printer := ui.NewPrinter(os.Stdout, cfg.UI.NoColor)
	prompter := auth.NewPrompter(os.Stdin, os.Stdout)
	interactive := isTerminal(os.Stdin)

	usernames := parseUsernames(args)
	if len(usernames) == 0 {
		line, err := prompter.Line(usernamePrompt)
		if err != nil {
			return err
		}
		usernames = parseUsernames([]string{line})
	}
	if len(usernames) == 0 {
		return errors.New("no usernames given")
	}

	manager, err := auth.NewManager(envFile)
	if err != nil {
		log.WithError(err).Warn("Credential stores unavailable")
	}
	if err := resolveCredentials(cfg, manager, prompter, interactive, os.Stdout); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := plurk.NewClient(cfg.Plurk, log,
		plurk.WithRetry(retry.FromSettings(cfg.Retry, log)),
		plurk.WithUserAgent(cfg.Download.UserAgent),
	)
	media := downloader.NewMediaDownloader(cfg.Download, log)
	c := crawler.New(cfg, client, media, printer, log)

	log.InfoWithFields("Starting backup", map[string]interface{}{
		"users":     len(usernames),
		"output":    cfg.Output.BaseDirectory,
		"workers":   cfg.Crawl.Workers,
		"threshold": cfg.Crawl.FavoriteThreshold,
	})

	stats, runErr := c.Run(ctx, usernames)
	for _, s := range stats {
		if s.UserID != 0 {
			printer.UserSummary(s.Username, s.Posts, s.Saved, s.Elapsed)
		}
	}
	printer.TotalTime(time.Since(start))

	if runErr != nil {
		log.WithError(runErr).Error("Backup finished with errors")
		return runErr
	}
	return nil
}
