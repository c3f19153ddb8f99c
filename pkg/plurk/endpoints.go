package plurk

import (
	"net/url"
	"strconv"
)

// Plurk API 2.0 endpoints used by the archiver
const (
	EndpointPublicPlurks  = "/APP/Timeline/getPublicPlurks"
	EndpointResponses     = "/APP/Responses/get"
	EndpointPublicProfile = "/APP/Profile/getPublicProfile"
)

// DefaultPageSize is the number of posts requested per timeline page
const DefaultPageSize = 30

// PublicPlurksParams builds the query for one timeline page.
// offset is a timestamp watermark; the API returns posts older than it.
func PublicPlurksParams(userID int64, offset string, limit int) url.Values {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return url.Values{
		"user_id":           {strconv.FormatInt(userID, 10)},
		"offset":            {offset},
		"limit":             {strconv.Itoa(limit)},
		"favorers_detail":   {"false"},
		"limited_detail":    {"false"},
		"replurkers_detail": {"false"},
	}
}

// ResponsesParams builds the query for a post's comment thread
func ResponsesParams(plurkID int64) url.Values {
	return url.Values{"plurk_id": {strconv.FormatInt(plurkID, 10)}}
}

// PublicProfileParams builds the profile lookup query. The API accepts a
// nick name in the user_id field.
func PublicProfileParams(username string) url.Values {
	return url.Values{"user_id": {username}}
}
