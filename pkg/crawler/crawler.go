package crawler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
	"plurkbackup/internal/downloader"
	"plurkbackup/pkg/config"
	errs "plurkbackup/pkg/errors"
	"plurkbackup/pkg/logger"
	"plurkbackup/pkg/plurk"
	"plurkbackup/pkg/storage"
)

// Crawler archives the timelines of one or more users. All users share a
// single worker pool.
type Crawler struct {
	config  *config.Config
	caller  plurk.Caller
	media   MediaClient
	printer Printer
	pool    *downloader.WorkerPool
	now     func() time.Time
	logger  logger.Logger
}

// UserStats summarizes one archived user
type UserStats struct {
	Username string
	UserID   int64
	// NotFound is set when Plurk has no such user. The user is skipped
	// without counting as a failure.
	NotFound bool
	Pages    int
	ProcessStats
	Saved   int
	Elapsed time.Duration
}

// Option customizes a Crawler
type Option func(*Crawler)

// WithClock overrides the clock used for the initial cursor
func WithClock(now func() time.Time) Option {
	return func(c *Crawler) { c.now = now }
}

// New creates a crawler. The worker pool is sized from crawl.workers.
func New(cfg *config.Config, caller plurk.Caller, media MediaClient, printer Printer, log logger.Logger, opts ...Option) *Crawler {
	if log == nil {
		log = logger.GetLogger()
	}
	c := &Crawler{
		config:  cfg,
		caller:  caller,
		media:   media,
		printer: printer,
		pool:    downloader.NewWorkerPool(cfg.Crawl.Workers, log),
		now:     time.Now,
		logger:  log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run archives every user concurrently and returns the joined per-user
// errors. One user failing does not stop the others.
func (c *Crawler) Run(ctx context.Context, usernames []string) ([]UserStats, error) {
	c.pool.Start()
	defer c.pool.Stop()

	stats := make([]UserStats, len(usernames))
	failures := make([]error, len(usernames))

	var g errgroup.Group
	for i, username := range usernames {
		g.Go(func() error {
			s, err := c.ArchiveUser(ctx, username)
			stats[i] = s
			if err != nil {
				failures[i] = fmt.Errorf("user %s: %w", username, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return stats, errors.Join(failures...)
}

// ArchiveUser resolves username, prepares its directory and runs the
// producer and consumer until the timeline is exhausted. An unknown user is
// reported on the progress stream and skipped.
// The pool must have been started.
func (c *Crawler) ArchiveUser(ctx context.Context, username string) (UserStats, error) {
	start := time.Now()
	stats := UserStats{Username: username}
	log := c.logger.WithField("username", username)

	profile, err := plurk.PublicProfile(ctx, c.caller, username)
	if err != nil {
		if errs.Is(err, errs.ErrorTypeNotFound) {
			log.WithError(err).Warn("User not found, skipping")
			c.printer.Error(fmt.Sprintf("User %s Not Found!", username), nil)
			stats.NotFound = true
			return stats, nil
		}
		c.printer.Error("Failed to resolve user "+username, err)
		return stats, fmt.Errorf("failed to resolve user: %w", err)
	}
	stats.UserID = profile.UserInfo.ID

	store, err := storage.NewManager(
		filepath.Join(c.config.Output.BaseDirectory, username),
		c.config.Output.DirMode(),
		c.config.Output.FileMode(),
	)
	if err != nil {
		return stats, err
	}

	log.InfoWithFields("Archiving timeline", map[string]interface{}{
		"user_id":    stats.UserID,
		"output_dir": store.GetOutputDir(),
	})

	archiver := &mediaArchiver{
		username:    username,
		store:       store,
		media:       c.media,
		printer:     c.printer,
		concurrency: c.config.Download.ConcurrentDownloads,
		logger:      log,
	}
	processor := &PostProcessor{
		ownerID:   stats.UserID,
		threshold: c.config.Crawl.FavoriteThreshold,
		pool:      c.pool,
		archiver:  archiver,
		responses: &ResponseFetcher{
			caller:   c.caller,
			archiver: archiver,
			ownerID:  stats.UserID,
			logger:   log,
		},
		logger: log,
	}
	producer := &Producer{
		caller:   c.caller,
		pageSize: c.config.Crawl.PageSize,
		now:      c.now,
		logger:   log,
	}

	queue := NewQueue(c.config.Crawl.QueueDepth)
	pctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pages := make(chan int, 1)
	go func() {
		pages <- producer.Run(pctx, stats.UserID, queue)
	}()

	ps, runErr := processor.Run(pctx, queue)
	cancel()
	stats.Pages = <-pages
	stats.ProcessStats = ps
	stats.Saved = store.SavedCount()
	stats.Elapsed = time.Since(start)

	if runErr != nil {
		return stats, runErr
	}

	logger.LogUserSummary(log, username, stats.Batches, stats.Posts, stats.Elapsed)
	return stats, nil
}
