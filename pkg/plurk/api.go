package plurk

import (
	"context"
	"encoding/json"

	errs "plurkbackup/pkg/errors"
)

// PublicPlurks fetches one page of a user's public timeline older than offset
func PublicPlurks(ctx context.Context, c Caller, userID int64, offset string, limit int) ([]Post, error) {
	raw, err := c.Call(ctx, EndpointPublicPlurks, PublicPlurksParams(userID, offset, limit))
	if err != nil {
		return nil, err
	}

	var page timelinePage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeParsing, EndpointPublicPlurks, err)
	}
	return page.Plurks, nil
}

// Responses fetches every response of a post in arrival order
func Responses(ctx context.Context, c Caller, plurkID int64) ([]Response, error) {
	raw, err := c.Call(ctx, EndpointResponses, ResponsesParams(plurkID))
	if err != nil {
		return nil, err
	}

	var page responsesPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeParsing, EndpointResponses, err)
	}
	return page.Responses, nil
}

// PublicProfile resolves a username to its profile
func PublicProfile(ctx context.Context, c Caller, username string) (*Profile, error) {
	raw, err := c.Call(ctx, EndpointPublicProfile, PublicProfileParams(username))
	if err != nil {
		return nil, err
	}

	var p Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeParsing, EndpointPublicProfile, err)
	}
	if p.UserInfo.ID == 0 {
		return nil, errs.New(errs.ErrorTypeNotFound, EndpointPublicProfile, "user "+username+" not found")
	}
	return &p, nil
}
