package crawler

import (
	"context"
	"strings"

	"plurkbackup/pkg/logger"
	"plurkbackup/pkg/plurk"
)

// ResponseFetcher archives the comment thread of a post
type ResponseFetcher struct {
	caller   plurk.Caller
	archiver *mediaArchiver
	ownerID  int64
	logger   logger.Logger
}

// Fetch downloads the media of every response and appends each response's
// content to its own text file. A failed API call is logged and treated as
// a post without responses.
func (f *ResponseFetcher) Fetch(ctx context.Context, post plurk.Post, postStamp Stamp) error {
	responses, err := plurk.Responses(ctx, f.caller, post.PlurkID)
	if err != nil {
		f.logger.WithError(err).WarnWithFields("Failed to fetch responses", map[string]interface{}{
			"plurk_id": post.PlurkID,
		})
		return nil
	}

	var assets []asset
	seq := 0
	for i, resp := range responses {
		r := i + 1

		stamp, err := ParsePosted(resp.Posted)
		if err != nil {
			f.logger.DebugWithFields("Response timestamp unreadable, using post date", map[string]interface{}{
				"plurk_id": post.PlurkID,
				"response": r,
				"posted":   resp.Posted,
			})
			stamp = postStamp
		}

		refs := extractResponseMedia(resp.Content)
		assets = append(assets, f.archiver.prepare(ctx, refs, &seq, func(seq int, ext string) string {
			return ResponseMediaName(stamp, post.PlurkID, seq, r, f.ownerID, ext)
		})...)

		if err := f.archiver.store.AppendText(ResponseTextName(stamp, post.PlurkID, r), strings.TrimSpace(resp.Content)); err != nil {
			return err
		}
	}

	f.archiver.downloadAll(ctx, assets)

	f.logger.DebugWithFields("Archived responses", map[string]interface{}{
		"plurk_id":  post.PlurkID,
		"responses": len(responses),
		"media":     len(assets),
	})
	return nil
}
