package connectors

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/casebrief/internal/core/domain"
	"github.com/custodia-labs/casebrief/internal/core/ports/driven"
)

// Notes explaining an empty result.
const (
	NoteNotConnected = "not connected"
	NoteNoKeywords   = "no keywords in scope"
)

// Empty returns a result with no items and an explanatory note.
func Empty(serviceID, note string) *domain.ServiceFetchResult {
	return &domain.ServiceFetchResult{
		Items:    []domain.ProjectDataItem{},
		Metadata: domain.ServiceFetchMetadata{ServiceID: serviceID, Note: note},
	}
}

// NotConnected returns the empty result for a service without a usable
// credential, or nil if tokens reports one.
func NotConnected(ctx context.Context, serviceID string, tokens driven.TokenProvider) *domain.ServiceFetchResult {
	if tokens != nil && tokens.IsAuthenticated(ctx) {
		return nil
	}
	return Empty(serviceID, NoteNotConnected)
}

// Preview collapses whitespace and truncates s to at most n runes, adding
// "..." when it was cut.
func Preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}

// Quote wraps a search term in double quotes, dropping any quotes inside.
func Quote(term string) string {
	return `"` + strings.ReplaceAll(term, `"`, "") + `"`
}
