package calendar

import "github.com/custodia-labs/casebrief/internal/core/domain"

// maxPageSize is the largest page events.list accepts.
const maxPageSize = 2500

// Config holds Google Calendar connector configuration.
type Config struct {
	// CalendarID is the calendar searched (default "primary").
	CalendarID string
	// BodyChars bounds the description kept per event.
	BodyChars int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		CalendarID: "primary",
		BodyChars:  2000,
	}
}

// SearchTerms returns the free-text terms issued as separate queries:
// the keywords, else the participants, else a single empty term that
// lists the whole window.
func SearchTerms(scope domain.ProjectScope) []string {
	switch {
	case len(scope.Keywords) > 0:
		return scope.Keywords
	case len(scope.Participants) > 0:
		return scope.Participants
	default:
		return []string{""}
	}
}
