// Package google provides shared infrastructure for Google API connectors.
//
// This package contains common utilities used by the gmail, drive, and calendar
// connectors including:
//   - TokenSource adapter to bridge a driven.TokenProvider to oauth2.TokenSource
//   - Service factories for creating Google API clients
//   - Error classification for Google API errors
//   - Per-service quotas for the shared connectors.Throttle
//
// # Usage
//
//	svc, err := google.NewGmailService(ctx, tokens, opts)
//	if err := limiter.Wait(ctx); err != nil { ... }
//	resp, err := svc.Users.Messages.List("me").Q(query).Do()
//	if err != nil {
//		return nil, google.Classify(err, "gmail: list messages", limiter)
//	}
//
// # OAuth2 Scopes
//
// Google connectors use these scopes:
//   - https://www.googleapis.com/auth/userinfo.email (non-sensitive)
//   - https://www.googleapis.com/auth/gmail.readonly (restricted)
//   - https://www.googleapis.com/auth/drive.readonly (restricted)
//   - https://www.googleapis.com/auth/calendar.readonly (sensitive)
package google
