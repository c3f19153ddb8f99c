package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"plurkbackup/pkg/config"
	errs "plurkbackup/pkg/errors"
	"plurkbackup/pkg/logger"
	"plurkbackup/pkg/storage"
)

func newMediaServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/a.jpg", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "plurkbackup-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "image/jpeg")
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write([]byte("jpeg-bytes"))
	})
	mux.HandleFunc("/moved.png", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/a.jpg", http.StatusFound)
	})
	mux.HandleFunc("/broken.gif", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestDownloader() *MediaDownloader {
	return NewMediaDownloader(config.DownloadConfig{
		Timeout:   5 * time.Second,
		UserAgent: "plurkbackup-test",
	}, logger.NewNopLogger())
}

func TestExists(t *testing.T) {
	server := newMediaServer(t)
	d := newTestDownloader()
	ctx := context.Background()

	assert.True(t, d.Exists(ctx, server.URL+"/a.jpg"))
	assert.True(t, d.Exists(ctx, server.URL+"/moved.png"))
	assert.False(t, d.Exists(ctx, server.URL+"/missing.jpg"))
	assert.False(t, d.Exists(ctx, server.URL+"/broken.gif"))
	assert.False(t, d.Exists(ctx, "http://127.0.0.1:1/unreachable.jpg"))
	assert.False(t, d.Exists(ctx, "::not a url"))
}

func TestDownload(t *testing.T) {
	server := newMediaServer(t)
	d := newTestDownloader()
	store, err := storage.NewManager(t.TempDir(), 0755, 0644)
	require.NoError(t, err)

	require.NoError(t, d.Download(context.Background(), server.URL+"/a.jpg", store, "2_1_2024-plurk-2s-1-7.jpg"))
	assert.True(t, store.Exists("2_1_2024-plurk-2s-1-7.jpg"))

	err = d.Download(context.Background(), server.URL+"/broken.gif", store, "x.gif")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeServerError))
	assert.False(t, store.Exists("x.gif"))

	err = d.Download(context.Background(), "http://127.0.0.1:1/a.jpg", store, "y.jpg")
	assert.True(t, errs.Is(err, errs.ErrorTypeTransport))
	assert.False(t, store.Exists("y.jpg"))
}
