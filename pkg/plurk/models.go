package plurk

// Post is one timeline entry. Posted is the API's timestamp string,
// for example "Fri, 05 Jun 2009 23:07:13 GMT".
type Post struct {
	PlurkID       int64  `json:"plurk_id"`
	OwnerID       int64  `json:"owner_id"`
	Posted        string `json:"posted"`
	Content       string `json:"content"`
	ContentRaw    string `json:"content_raw,omitempty"`
	FavoriteCount int    `json:"favorite_count"`
	ResponseCount int    `json:"response_count,omitempty"`
}

// Response is one comment on a post
type Response struct {
	ID         int64  `json:"id"`
	PlurkID    int64  `json:"plurk_id"`
	UserID     int64  `json:"user_id"`
	Posted     string `json:"posted"`
	Content    string `json:"content"`
	ContentRaw string `json:"content_raw,omitempty"`
}

// UserInfo is the subset of a public profile the archiver needs
type UserInfo struct {
	ID          int64  `json:"id"`
	NickName    string `json:"nick_name"`
	DisplayName string `json:"display_name"`
}

// Profile is the getPublicProfile payload
type Profile struct {
	UserInfo UserInfo `json:"user_info"`
}

type timelinePage struct {
	Plurks []Post `json:"plurks"`
}

type responsesPage struct {
	Responses []Response `json:"responses"`
}

// apiError is the body Plurk returns alongside non-2xx statuses
type apiError struct {
	ErrorText string `json:"error_text"`
}
