// Package github implements a ticket-like connector over GitHub issue search.
//
// One search query is issued per fetch. It combines the scope's keywords,
// an involves: qualifier per participant that looks like a GitHub login,
// and an updated: date range. Issues and pull requests are both returned;
// each becomes one item whose thread size is the comment count plus the
// opening post.
//
// # Authentication
//
// Personal access tokens and OAuth app tokens both work. Tokens are read
// from the token provider on every fetch, so a refreshed credential is
// picked up without rebuilding the connector.
//
// # Rate Limiting
//
// Requests are throttled proactively with a token bucket and reactively
// from the X-RateLimit-* headers. An exhausted limit or a secondary
// (abuse) limit is reported as a transport error wrapping
// [domain.ErrRateLimited].
package github
