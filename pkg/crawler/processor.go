package crawler

import (
	"context"
	"fmt"
	"strconv"

	"plurkbackup/internal/downloader"
	"plurkbackup/pkg/logger"
	"plurkbackup/pkg/plurk"
)

// PostProcessor is the consumer side of a user's pipeline
type PostProcessor struct {
	ownerID   int64
	threshold int
	pool      *downloader.WorkerPool
	archiver  *mediaArchiver
	responses *ResponseFetcher
	logger    logger.Logger
}

// ProcessStats summarizes what a consumer saw
type ProcessStats struct {
	Batches int
	Posts   int
	Failed  int
}

// Run drains queue until the end-of-stream sentinel. Each batch is fanned
// out to the worker pool and fully finished before the next one is taken.
func (p *PostProcessor) Run(ctx context.Context, queue <-chan Batch) (ProcessStats, error) {
	var stats ProcessStats

	for {
		var batch Batch
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case batch = <-queue:
		}

		if batch.IsSentinel() {
			return stats, nil
		}

		jobs := make([]downloader.Job, len(batch.Posts))
		for i, post := range batch.Posts {
			jobs[i] = downloader.Job{
				ID: strconv.FormatInt(post.PlurkID, 10),
				Run: func(ctx context.Context) error {
					return p.Process(ctx, post)
				},
			}
		}

		for _, r := range p.pool.RunBatch(ctx, jobs) {
			if r.Error != nil {
				stats.Failed++
			}
		}
		stats.Batches++
		stats.Posts += len(batch.Posts)

		p.logger.DebugWithFields("Batch processed", map[string]interface{}{
			"batch":  stats.Batches,
			"posts":  len(batch.Posts),
			"failed": stats.Failed,
		})
	}
}

// Process archives one post: its responses when the post is popular
// enough, its media and its text.
func (p *PostProcessor) Process(ctx context.Context, post plurk.Post) error {
	if post.OwnerID != p.ownerID {
		p.logger.DebugWithFields("Skipping replurked post", map[string]interface{}{
			"plurk_id": post.PlurkID,
			"owner_id": post.OwnerID,
		})
		return nil
	}

	stamp, err := ParsePosted(post.Posted)
	if err != nil {
		return fmt.Errorf("post %d: %w", post.PlurkID, err)
	}

	if post.FavoriteCount > p.threshold {
		if err := p.responses.Fetch(ctx, post, stamp); err != nil {
			return fmt.Errorf("post %d responses: %w", post.PlurkID, err)
		}
	}

	text, refs := splitPostContent(post.Content)
	seq := 0
	assets := p.archiver.prepare(ctx, refs, &seq, func(seq int, ext string) string {
		return PostMediaName(stamp, post.PlurkID, seq, p.ownerID, ext)
	})

	if err := p.archiver.store.AppendText(PostTextName(stamp, post.PlurkID), text...); err != nil {
		return fmt.Errorf("post %d: %w", post.PlurkID, err)
	}

	p.archiver.downloadAll(ctx, assets)
	return nil
}
