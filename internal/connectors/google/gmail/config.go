package gmail

import (
	"strings"
	"time"

	"github.com/custodia-labs/casebrief/internal/connectors"
	"github.com/custodia-labs/casebrief/internal/core/domain"
)

// gmailDate is the date format of the after:/before: operators.
const gmailDate = "2006/01/02"

// maxPageSize is the largest page messages.list accepts.
const maxPageSize = 500

// Config holds Gmail connector configuration.
type Config struct {
	// IncludeSpamTrash includes spam and trash if true.
	IncludeSpamTrash bool
	// Concurrency bounds parallel messages.get calls.
	Concurrency int
	// BodyChars bounds the text kept from each message body.
	BodyChars int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency: 4,
		BodyChars:   4000,
	}
}

// BuildQuery renders a scope as a Gmail search query:
//
//	("k1" OR "k2") AND (from:a OR to:a) after:2024/01/01 before:2024/02/01
//
// Empty clauses are omitted. before: is exclusive, so the day after the
// range end is used to keep the end date inclusive.
func BuildQuery(scope domain.ProjectScope) string {
	var clauses []string

	if len(scope.Keywords) > 0 {
		terms := make([]string, len(scope.Keywords))
		for i, k := range scope.Keywords {
			terms[i] = connectors.Quote(k)
		}
		clauses = append(clauses, "("+strings.Join(terms, " OR ")+")")
	}

	if len(scope.Participants) > 0 {
		terms := make([]string, 0, 2*len(scope.Participants))
		for _, p := range scope.Participants {
			terms = append(terms, "from:"+p)
		}
		for _, p := range scope.Participants {
			terms = append(terms, "to:"+p)
		}
		clauses = append(clauses, "("+strings.Join(terms, " OR ")+")")
	}

	query := strings.Join(clauses, " AND ")

	var dates []string
	if !scope.DateRange.Start.IsZero() {
		dates = append(dates, "after:"+scope.DateRange.Start.Format(gmailDate))
	}
	if !scope.DateRange.End.IsZero() {
		end := scope.DateRange.End.Truncate(24*time.Hour).AddDate(0, 0, 1)
		dates = append(dates, "before:"+end.Format(gmailDate))
	}
	if len(dates) > 0 {
		if query != "" {
			query += " "
		}
		query += strings.Join(dates, " ")
	}
	return query
}
