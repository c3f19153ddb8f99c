// Package plurk is a minimal client for the Plurk API 2.0.
//
// Every request is signed with OAuth 1.0a (HMAC-SHA1) using the consumer
// and access credentials from config.PlurkConfig. Calls go through the
// Caller interface so the crawler can be driven by a fake in tests:
//
//	client := plurk.NewClient(cfg.Plurk, log, plurk.WithRetry(retry.FromSettings(cfg.Retry, log)))
//	profile, err := plurk.PublicProfile(ctx, client, "alice")
//	posts, err := plurk.PublicPlurks(ctx, client, profile.UserInfo.ID, offset, 30)
//
// Non-2xx responses become *errors.Error values typed by status; network
// failures are typed transport and are retried by the configured policy.
package plurk
