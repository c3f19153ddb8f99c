package crawler

import (
	"path"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

const hrefMarker = "href"

// supportedExt lists the media extensions that are downloaded
var supportedExt = map[string]bool{
	"jpg": true, "png": true, "gif": true, "mp4": true,
	"webp": true, "bmp": true, "svg": true,
}

// responseHref finds link targets in a response's raw markup
var responseHref = regexp.MustCompile(`href=["']?([^"'\s>]+)`)

var validate = validator.New()

// mediaRef is a candidate media link found in content
type mediaRef struct {
	URL string
	Ext string
}

// splitPostContent splits post content on whitespace into text tokens and
// media candidates, both in token order. A token starting with href is a
// link marker; its URL is the rest of the token (href="URL") or the next
// token when the marker stands alone. Markers that do not point at a
// supported media file are kept as text.
func splitPostContent(content string) (text []string, media []mediaRef) {
	fields := strings.Fields(content)

	for i := 0; i < len(fields); i++ {
		tok := fields[i]
		if !strings.HasPrefix(tok, hrefMarker) {
			text = append(text, tok)
			continue
		}

		raw := []string{tok}
		payload := strings.TrimPrefix(tok, hrefMarker)
		if payload == "" && i+1 < len(fields) {
			i++
			payload = fields[i]
			raw = append(raw, payload)
		}

		u := normalizeHref(payload)
		if ext, ok := mediaExt(u); ok {
			media = append(media, mediaRef{URL: u, Ext: ext})
			continue
		}
		text = append(text, raw...)
	}
	return text, media
}

// extractResponseMedia returns the supported media links in response markup
func extractResponseMedia(content string) []mediaRef {
	var refs []mediaRef
	for _, m := range responseHref.FindAllStringSubmatch(content, -1) {
		u := normalizeHref(m[1])
		if ext, ok := mediaExt(u); ok {
			refs = append(refs, mediaRef{URL: u, Ext: ext})
		}
	}
	return refs
}

// normalizeHref strips the attribute syntax around a link target
func normalizeHref(s string) string {
	s = strings.TrimPrefix(s, "=")
	s = strings.TrimLeft(s, `"'`)
	return strings.TrimRight(s, `"'/>`)
}

// mediaExt returns the lower-cased extension of the link's path when it is
// a supported media type. The query string and fragment are ignored.
func mediaExt(u string) (string, bool) {
	p := u
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
	return ext, supportedExt[ext]
}

// validMediaURL reports whether u is an absolute http(s) URL with a host
func validMediaURL(u string) bool {
	return validate.Var(u, "required,http_url") == nil
}
