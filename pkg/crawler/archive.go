package crawler

import (
	"context"

	"golang.org/x/sync/errgroup"
	"plurkbackup/pkg/logger"
)

// asset is a media file that passed validation and the existence check
// and is not yet on disk
type asset struct {
	URL  string
	Name string
}

// mediaArchiver runs the validate, HEAD check, dedup and download steps shared
// by posts and responses
type mediaArchiver struct {
	username    string
	store       Store
	media       MediaClient
	printer     Printer
	concurrency int
	logger      logger.Logger
}

// prepare walks refs in order. Sequence numbers are taken from seq and
// handed out only to refs that validate and answer the HEAD check, so the
// n-th reachable asset counted by seq is always n regardless of download
// timing. Callers share one counter across every response of a post.
func (a *mediaArchiver) prepare(ctx context.Context, refs []mediaRef, seq *int, name func(seq int, ext string) string) []asset {
	var out []asset

	for _, ref := range refs {
		if !validMediaURL(ref.URL) {
			a.logger.WarnWithFields("Skipping invalid media URL", map[string]interface{}{
				"username": a.username,
				"url":      ref.URL,
			})
			continue
		}
		if !a.media.Exists(ctx, ref.URL) {
			a.logger.WarnWithFields("Skipping unreachable media URL", map[string]interface{}{
				"username": a.username,
				"url":      ref.URL,
			})
			continue
		}

		*seq++
		n := name(*seq, ref.Ext)
		if a.store.Exists(n) {
			a.printer.AlreadyDownloaded(n)
			continue
		}
		a.printer.Downloading(n)
		out = append(out, asset{URL: ref.URL, Name: n})
	}
	return out
}

// downloadAll fetches every asset concurrently and waits for all of them.
// Failures are reported per asset and never stop the siblings.
func (a *mediaArchiver) downloadAll(ctx context.Context, assets []asset) {
	if len(assets) == 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(a.concurrency)

	for _, as := range assets {
		g.Go(func() error {
			err := a.media.Download(ctx, as.URL, a.store, as.Name)
			logger.LogDownload(a.logger, a.username, as.Name, as.URL, err)
			if err != nil {
				a.printer.Failed(as.Name, err)
			}
			return nil
		})
	}
	_ = g.Wait()
}
