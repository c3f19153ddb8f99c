// Package crawler archives Plurk timelines to disk.
//
// For every user a Producer pages backward through the public timeline,
// moving a Cursor to the posted time of the last item of each page, and
// pushes pages onto a bounded channel. A PostProcessor drains the channel
// one batch at a time, running each post on the shared worker pool:
//
//	Producer -> chan Batch -> PostProcessor -> WorkerPool -> {ResponseFetcher, media}
//
// A post owned by someone else (a replurk) is skipped. Posts with more
// favorites than the configured threshold have their responses archived
// first. Post content is split on whitespace; href markers pointing at
// jpg, png, gif, mp4, webp, bmp or svg files are downloaded and every other
// token goes to the post's text file.
//
// File names carry the item's date, the base36 plurk id and a per-item
// sequence number, for example
//
//	2_1_2024-plurk-2s-1-7.jpg
//	2_1_2024-plurk-2s-text.txt
//	2_1_2024-plurk-2s-1-response-3-7.png
//	2_1_2024-plurk-2s-response-3-text.txt
//
// A media file already on disk is never fetched again. Text files are
// appended to on every run.
package crawler
