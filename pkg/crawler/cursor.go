package crawler

import (
	"time"
)

// cursorLayout is the format of the initial watermark
const cursorLayout = "2006-01-02T15:04:05"

// Cursor is the pagination watermark of one producer. The timeline is
// walked backward in time, so every accepted value is strictly older than
// the one before it.
type Cursor struct {
	value string
	at    time.Time
}

// NewCursor starts the watermark at now, in UTC
func NewCursor(now time.Time) *Cursor {
	now = now.UTC().Truncate(time.Second)
	return &Cursor{value: now.Format(cursorLayout), at: now}
}

// String returns the offset to send with the next timeline request
func (c *Cursor) String() string {
	return c.value
}

// Advance moves the watermark to the posted time of the last item in a
// page. It reports false, leaving the cursor unchanged, when posted is not
// strictly older than the current watermark.
func (c *Cursor) Advance(posted string) (bool, error) {
	s, err := ParsePosted(posted)
	if err != nil {
		return false, err
	}

	t := s.Time()
	if !t.Before(c.at) {
		return false, nil
	}
	c.value = s.Watermark()
	c.at = t
	return true, nil
}
