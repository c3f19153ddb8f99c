package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"plurkbackup/pkg/config"
	errs "plurkbackup/pkg/errors"
	"plurkbackup/pkg/logger"
)

// MediaStore persists a downloaded asset under a file name
type MediaStore interface {
	Save(r io.Reader, name string) error
}

// MediaDownloader checks and fetches media from arbitrary hosts. Media
// requests are unsigned and never retried.
type MediaDownloader struct {
	httpClient *http.Client
	userAgent  string
	logger     logger.Logger
}

// NewMediaDownloader creates a downloader using the download settings
func NewMediaDownloader(cfg config.DownloadConfig, log logger.Logger) *MediaDownloader {
	if log == nil {
		log = logger.GetLogger()
	}
	return &MediaDownloader{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		userAgent:  cfg.UserAgent,
		logger:     log,
	}
}

// Exists issues a HEAD request and reports whether the asset is reachable
// (any status below 400). No body is read.
func (d *MediaDownloader) Exists(ctx context.Context, url string) bool {
	req, err := d.newRequest(ctx, http.MethodHead, url)
	if err != nil {
		return false
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.logger.DebugWithFields("HEAD request failed", map[string]interface{}{
			"url":   url,
			"error": err.Error(),
		})
		return false
	}
	resp.Body.Close()

	return resp.StatusCode < 400
}

// Download GETs url and streams the body into store under name.
// A non-2xx status is an error and nothing is written.
func (d *MediaDownloader) Download(ctx context.Context, url string, store MediaStore, name string) error {
	req, err := d.newRequest(ctx, http.MethodGet, url)
	if err != nil {
		return errs.Validation("download "+name, err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return errs.Transport("download "+name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &errs.Error{
			Type:    errs.FromStatus(resp.StatusCode),
			Op:      "download " + name,
			Message: fmt.Sprintf("unexpected status %d", resp.StatusCode),
			Code:    resp.StatusCode,
		}
	}

	if err := store.Save(resp.Body, name); err != nil {
		return err
	}
	return nil
}

func (d *MediaDownloader) newRequest(ctx context.Context, method, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}
	return req, nil
}
