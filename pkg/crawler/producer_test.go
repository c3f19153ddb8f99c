package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"plurkbackup/pkg/config"
	errs "plurkbackup/pkg/errors"
	"plurkbackup/pkg/logger"
	"plurkbackup/pkg/plurk"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestProducer(caller plurk.Caller) *Producer {
	return &Producer{
		caller:   caller,
		pageSize: 2,
		now:      func() time.Time { return fixedNow },
		logger:   logger.NewNopLogger(),
	}
}

func page(posts ...plurk.Post) map[string]interface{} {
	if posts == nil {
		posts = []plurk.Post{}
	}
	return map[string]interface{}{"plurks": posts}
}

// drain collects batches until the sentinel
func drain(t *testing.T, queue <-chan Batch) []Batch {
	t.Helper()
	var out []Batch
	for {
		select {
		case b := <-queue:
			if b.IsSentinel() {
				return out
			}
			out = append(out, b)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for sentinel")
		}
	}
}

func TestProducerPagesUntilEmpty(t *testing.T) {
	caller := newFakeCaller()
	pages := map[string]map[string]interface{}{
		"2024-03-01T12:00:00": page(
			plurk.Post{PlurkID: 3, OwnerID: 7, Posted: "Thu, 29 Feb 2024 10:00:00 GMT"},
			plurk.Post{PlurkID: 2, OwnerID: 7, Posted: "Wed, 28 Feb 2024 09:00:00 GMT"},
		),
		"2024-2-28T09:00:00": page(
			plurk.Post{PlurkID: 1, OwnerID: 7, Posted: "Mon, 01 Jan 2024 08:00:00 GMT"},
		),
		"2024-1-1T08:00:00": page(),
	}
	caller.on(plurk.EndpointPublicPlurks, func(p url.Values) (interface{}, error) {
		assert.Equal(t, "7", p.Get("user_id"))
		assert.Equal(t, "2", p.Get("limit"))
		resp, ok := pages[p.Get("offset")]
		require.True(t, ok, "unexpected offset %s", p.Get("offset"))
		return resp, nil
	})

	queue := make(chan Batch, 1)
	done := make(chan int, 1)
	go func() { done <- newTestProducer(caller).Run(context.Background(), 7, queue) }()

	batches := drain(t, queue)
	require.Len(t, batches, 2)
	assert.Len(t, batches[0].Posts, 2)
	assert.Len(t, batches[1].Posts, 1)
	assert.Equal(t, 2, <-done)

	offsets := []string{}
	for _, c := range caller.callsTo(plurk.EndpointPublicPlurks) {
		offsets = append(offsets, c.Params.Get("offset"))
	}
	assert.Equal(t, []string{"2024-03-01T12:00:00", "2024-2-28T09:00:00", "2024-1-1T08:00:00"}, offsets)
}

func TestProducerStopsWhenCursorDoesNotAdvance(t *testing.T) {
	caller := newFakeCaller()
	calls := 0
	caller.on(plurk.EndpointPublicPlurks, func(p url.Values) (interface{}, error) {
		calls++
		// the API keeps returning the same page
		return page(plurk.Post{PlurkID: 1, OwnerID: 7, Posted: "Mon, 01 Jan 2024 08:00:00 GMT"}), nil
	})

	queue := make(chan Batch, 1)
	go newTestProducer(caller).Run(context.Background(), 7, queue)

	batches := drain(t, queue)
	assert.Len(t, batches, 2)
	assert.Equal(t, 2, calls)
}

func TestProducerStopsOnFutureTimestamp(t *testing.T) {
	caller := newFakeCaller()
	caller.on(plurk.EndpointPublicPlurks, func(p url.Values) (interface{}, error) {
		return page(plurk.Post{PlurkID: 1, OwnerID: 7, Posted: "Sat, 01 Jun 2024 08:00:00 GMT"}), nil
	})

	queue := make(chan Batch, 1)
	go newTestProducer(caller).Run(context.Background(), 7, queue)

	batches := drain(t, queue)
	assert.Len(t, batches, 1)
	assert.Len(t, caller.callsTo(plurk.EndpointPublicPlurks), 1)
}

func TestProducerTreatsFetchErrorAsEnd(t *testing.T) {
	caller := newFakeCaller()
	caller.on(plurk.EndpointPublicPlurks, func(p url.Values) (interface{}, error) {
		return nil, errs.Transport(plurk.EndpointPublicPlurks, errors.New("connection refused"))
	})

	tl := logger.NewTestLogger()
	p := newTestProducer(caller)
	p.logger = tl

	queue := make(chan Batch, 1)
	go p.Run(context.Background(), 7, queue)

	assert.Empty(t, drain(t, queue))
	assert.True(t, tl.HasMessage("Failed to fetch timeline page"))
}

func TestProducerHonoursCancellation(t *testing.T) {
	caller := newFakeCaller()
	caller.on(plurk.EndpointPublicPlurks, func(p url.Values) (interface{}, error) {
		return page(plurk.Post{PlurkID: 1, OwnerID: 7, Posted: "Mon, 01 Jan 2024 08:00:00 GMT"}), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	queue := make(chan Batch) // nobody reads
	done := make(chan struct{})
	go func() {
		newTestProducer(caller).Run(ctx, 7, queue)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("producer did not stop after cancellation")
	}
}

func TestProducerRunsAheadByOneBatch(t *testing.T) {
	var served atomic.Int64
	caller := newFakeCaller()
	caller.on(plurk.EndpointPublicPlurks, func(p url.Values) (interface{}, error) {
		n := served.Add(1)
		posted := fixedNow.Add(-time.Duration(n) * time.Hour).UTC().Format(http.TimeFormat)
		return page(plurk.Post{PlurkID: n, OwnerID: 7, Posted: posted}), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue := NewQueue(config.DefaultConfig().Crawl.QueueDepth)
	done := make(chan struct{})
	go func() {
		newTestProducer(caller).Run(ctx, 7, queue)
		close(done)
	}()

	// take batch 1 and hold it
	select {
	case b := <-queue:
		require.Len(t, b.Posts, 1)
	case <-time.After(5 * time.Second):
		t.Fatal("no first batch")
	}

	assert.Eventually(t, func() bool {
		return len(caller.callsTo(plurk.EndpointPublicPlurks)) >= 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool {
		return len(caller.callsTo(plurk.EndpointPublicPlurks)) > 2
	}, 200*time.Millisecond, 10*time.Millisecond, "producer fetched more than one page beyond the held batch")

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("producer did not stop after cancellation")
	}
}

func TestNewQueueClampsNegativeDepth(t *testing.T) {
	assert.Equal(t, 0, cap(NewQueue(-3)))
	assert.Equal(t, 2, cap(NewQueue(2)))
}
