package crawler

import (
	"context"
	"time"

	"plurkbackup/pkg/logger"
	"plurkbackup/pkg/plurk"
)

// Batch is one timeline page. An empty batch marks the end of the stream.
type Batch struct {
	Posts []plurk.Post
}

// IsSentinel reports whether b is the end-of-stream marker
func (b Batch) IsSentinel() bool {
	return len(b.Posts) == 0
}

// NewQueue returns the channel linking a Producer to a PostProcessor. With
// depth 0 the producer blocks on its next page until the processor has taken
// the previous one, so it never holds more than one batch ahead.
func NewQueue(depth int) chan Batch {
	if depth < 0 {
		depth = 0
	}
	return make(chan Batch, depth)
}

// Producer pages through a user's public timeline
type Producer struct {
	caller   plurk.Caller
	pageSize int
	now      func() time.Time
	logger   logger.Logger
}

// Run pushes each non-empty page to queue, newest first, then pushes the
// sentinel. The stream ends on an empty page, on a cursor that would not
// move to older posts, or when ctx is cancelled. A failed fetch is treated
// as an empty page.
func (p *Producer) Run(ctx context.Context, ownerID int64, queue chan<- Batch) int {
	cursor := NewCursor(p.now())
	pages := 0

	defer func() {
		select {
		case queue <- Batch{}:
		case <-ctx.Done():
		}
		logger.LogComponentStop(p.logger, "producer", "end of timeline")
	}()

	for {
		posts, err := plurk.PublicPlurks(ctx, p.caller, ownerID, cursor.String(), p.pageSize)
		if err != nil {
			p.logger.WithError(err).WarnWithFields("Failed to fetch timeline page", map[string]interface{}{
				"cursor": cursor.String(),
			})
			return pages
		}
		if len(posts) == 0 {
			return pages
		}

		select {
		case queue <- Batch{Posts: posts}:
		case <-ctx.Done():
			return pages
		}
		pages++

		last := posts[len(posts)-1].Posted
		advanced, err := cursor.Advance(last)
		if err != nil {
			p.logger.WithError(err).Warn("Cannot read timestamp of last post, stopping")
			return pages
		}
		if !advanced {
			p.logger.WarnWithFields("Cursor did not move to older posts, stopping", map[string]interface{}{
				"cursor": cursor.String(),
				"posted": last,
			})
			return pages
		}

		p.logger.DebugWithFields("Fetched timeline page", map[string]interface{}{
			"page":   pages,
			"posts":  len(posts),
			"cursor": cursor.String(),
		})
	}
}
