package github

import (
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/casebrief/internal/connectors"
	"github.com/custodia-labs/casebrief/internal/core/domain"
)

// maxPerPage is the largest page the search API accepts.
const maxPerPage = 100

// Config holds GitHub connector configuration.
type Config struct {
	// Qualifiers are extra search qualifiers, e.g. "org:acme" or "repo:acme/api".
	Qualifiers []string
	// BodyChars bounds the issue body kept per item.
	BodyChars int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{BodyChars: 2000}
}

// BuildQuery renders the issue search query for a scope. Participants
// containing "@" are email addresses, which issue search cannot match,
// so they are left out.
func BuildQuery(scope domain.ProjectScope, cfg Config) string {
	var parts []string

	if len(scope.Keywords) > 0 {
		terms := make([]string, len(scope.Keywords))
		for i, k := range scope.Keywords {
			terms[i] = connectors.Quote(k)
		}
		if len(terms) == 1 {
			parts = append(parts, terms[0])
		} else {
			parts = append(parts, "("+strings.Join(terms, " OR ")+")")
		}
	}

	for _, p := range scope.Participants {
		if p == "" || strings.Contains(p, "@") {
			continue
		}
		parts = append(parts, "involves:"+p)
	}

	if r := dateRange(scope.DateRange); r != "" {
		parts = append(parts, "updated:"+r)
	}

	parts = append(parts, cfg.Qualifiers...)
	return strings.Join(parts, " ")
}

func dateRange(r domain.DateRange) string {
	switch {
	case !r.Start.IsZero() && !r.End.IsZero():
		return fmt.Sprintf("%s..%s", r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly))
	case !r.Start.IsZero():
		return ">=" + r.Start.Format(time.DateOnly)
	case !r.End.IsZero():
		return "<=" + r.End.Format(time.DateOnly)
	default:
		return ""
	}
}
