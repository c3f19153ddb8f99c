package crawler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCursorUsesUTC(t *testing.T) {
	taipei := time.FixedZone("CST", 8*3600)
	c := NewCursor(time.Date(2024, 3, 1, 8, 30, 15, 999, taipei))
	assert.Equal(t, "2024-03-01T00:30:15", c.String())
}

func TestCursorAdvancesBackward(t *testing.T) {
	c := NewCursor(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	ok, err := c.Advance("Tue, 02 Jan 2024 10:00:00 GMT")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2024-1-2T10:00:00", c.String())

	ok, err = c.Advance("Mon, 01 Jan 2024 09:59:59 GMT")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2024-1-1T09:59:59", c.String())
}

func TestCursorNeverRegresses(t *testing.T) {
	c := NewCursor(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	_, err := c.Advance("Tue, 02 Jan 2024 10:00:00 GMT")
	require.NoError(t, err)

	for _, posted := range []string{
		"Tue, 02 Jan 2024 10:00:00 GMT", // same instant
		"Wed, 03 Jan 2024 00:00:00 GMT", // newer
		"Fri, 01 Mar 2024 00:00:00 GMT",
	} {
		ok, err := c.Advance(posted)
		require.NoError(t, err)
		assert.False(t, ok, posted)
		assert.Equal(t, "2024-1-2T10:00:00", c.String())
	}
}

func TestCursorRejectsUnreadableTimestamp(t *testing.T) {
	c := NewCursor(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	ok, err := c.Advance("yesterday")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, "2024-03-01T00:00:00", c.String())
}
