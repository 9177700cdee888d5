// Package connectors holds helpers shared by the service connectors.
//
// Each subpackage implements driven.Connector for one external service:
//
//   - google/gmail: email-like items from Gmail search
//   - google/drive: document-like items from Drive file search
//   - google/calendar: event-like items from the primary calendar
//   - github: ticket-like items from issue and pull request search
//
// Connectors never refresh tokens. They read the current access token from
// a driven.TokenProvider on every request and report an expected empty
// result, never an error, when the user has not connected the service.
package connectors
