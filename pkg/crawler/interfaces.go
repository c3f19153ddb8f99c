package crawler

import (
	"context"
	"io"

	"plurkbackup/internal/downloader"
)

// MediaClient checks and downloads media assets
type MediaClient interface {
	Exists(ctx context.Context, url string) bool
	Download(ctx context.Context, url string, store downloader.MediaStore, name string) error
}

// Store is one user's archive directory
type Store interface {
	Exists(name string) bool
	Save(r io.Reader, name string) error
	AppendText(name string, lines ...string) error
}

// Printer reports progress to the user
type Printer interface {
	Downloading(name string)
	AlreadyDownloaded(name string)
	Failed(name string, err error)
	// Error reports a failure that is not tied to one file, such as an
	// unknown user
	Error(msg string, err error)
}
