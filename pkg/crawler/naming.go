package crawler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	errs "plurkbackup/pkg/errors"
)

// monthAbbr is fixed so parsing never depends on the process locale
var monthAbbr = map[string]int{
	"Jan": 1, "Feb": 2, "Mar": 3, "Apr": 4, "May": 5, "Jun": 6,
	"Jul": 7, "Aug": 8, "Sep": 9, "Oct": 10, "Nov": 11, "Dec": 12,
}

// Stamp is the calendar date and wall-clock time of a post or response
type Stamp struct {
	Year  int
	Month int
	Day   int
	Clock string // HH:MM:SS as sent by the API
}

// ParsePosted reads the API's posted field. Fields are matched by shape
// rather than position, so both "Fri, 05 Jun 2009 23:07:13 GMT" and
// "Tue Jan 2 2024 10:00:00" parse.
func ParsePosted(posted string) (Stamp, error) {
	var s Stamp
	fields := strings.Fields(strings.ReplaceAll(posted, ",", " "))

	for _, f := range fields {
		if m, ok := monthAbbr[f]; ok && s.Month == 0 {
			s.Month = m
			continue
		}
		if strings.Contains(f, ":") {
			s.Clock = f
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			continue // weekday, zone
		}
		if len(f) == 4 {
			s.Year = n
		} else if len(f) <= 2 {
			s.Day = n
		}
	}

	if s.Year == 0 || s.Month == 0 || s.Day < 1 || s.Day > 31 || !validClock(s.Clock) {
		return Stamp{}, errs.New(errs.ErrorTypeParsing, "parse posted", fmt.Sprintf("unrecognised timestamp %q", posted))
	}
	return s, nil
}

func validClock(c string) bool {
	parts := strings.Split(c, ":")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if _, err := strconv.Atoi(p); err != nil {
			return false
		}
	}
	return true
}

// Time returns the stamp as a UTC instant
func (s Stamp) Time() time.Time {
	var h, m, sec int
	fmt.Sscanf(s.Clock, "%d:%d:%d", &h, &m, &sec)
	return time.Date(s.Year, time.Month(s.Month), s.Day, h, m, sec, 0, time.UTC)
}

// Watermark renders the stamp as a timeline offset, "YYYY-M-DTHH:MM:SS"
func (s Stamp) Watermark() string {
	return fmt.Sprintf("%d-%d-%dT%s", s.Year, s.Month, s.Day, s.Clock)
}

// FilePrefix renders the stamp as "D_M_YYYY", day and month unpadded
func (s Stamp) FilePrefix() string {
	return fmt.Sprintf("%d_%d_%d", s.Day, s.Month, s.Year)
}

// Base36 encodes a plurk id the way plurk.com permalinks do
func Base36(id int64) string {
	return strconv.FormatInt(id, 36)
}

// PostMediaName names the seq-th media file of a post
func PostMediaName(s Stamp, plurkID int64, seq int, owner int64, ext string) string {
	return fmt.Sprintf("%s-plurk-%s-%d-%d.%s", s.FilePrefix(), Base36(plurkID), seq, owner, ext)
}

// ResponseMediaName names the seq-th media file of the r-th response
func ResponseMediaName(s Stamp, plurkID int64, seq, r int, owner int64, ext string) string {
	return fmt.Sprintf("%s-plurk-%s-%d-response-%d-%d.%s", s.FilePrefix(), Base36(plurkID), seq, r, owner, ext)
}

// PostTextName names the text file of a post
func PostTextName(s Stamp, plurkID int64) string {
	return fmt.Sprintf("%s-plurk-%s-text.txt", s.FilePrefix(), Base36(plurkID))
}

// ResponseTextName names the text file of the r-th response
func ResponseTextName(s Stamp, plurkID int64, r int) string {
	return fmt.Sprintf("%s-plurk-%s-response-%d-text.txt", s.FilePrefix(), Base36(plurkID), r)
}
