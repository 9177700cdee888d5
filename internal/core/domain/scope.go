package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefaultResultCap bounds the number of items fetched per service.
const DefaultResultCap = 100

// DateRange is an inclusive time window.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Validate checks that the window is well ordered.
func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: date range requires start and end", ErrInvalidInput)
	}
	if r.Start.After(r.End) {
		return fmt.Errorf("%w: date range start %s is after end %s",
			ErrInvalidInput, r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly))
	}
	return nil
}

// Contains reports whether t falls inside the window, bounds included.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// ProjectScope defines what a case study is about. It is immutable once
// built: NewProjectScope copies its inputs.
type ProjectScope struct {
	Keywords     []string  `json:"keywords"`
	Participants []string  `json:"participants"`
	DateRange    DateRange `json:"date_range"`
	// ResultCap is the maximum number of items any single service returns.
	ResultCap int `json:"result_cap"`
}

// NewProjectScope builds a validated scope. Keywords and participants are
// trimmed and de-duplicated preserving first occurrence. A cap of zero
// selects DefaultResultCap.
func NewProjectScope(keywords, participants []string, start, end time.Time, resultCap int) (ProjectScope, error) {
	if resultCap == 0 {
		resultCap = DefaultResultCap
	}
	s := ProjectScope{
		Keywords:     uniqueTrimmed(keywords, false),
		Participants: uniqueTrimmed(participants, true),
		DateRange:    DateRange{Start: start, End: end},
		ResultCap:    resultCap,
	}
	if err := s.Validate(); err != nil {
		return ProjectScope{}, err
	}
	return s, nil
}

// Validate checks the scope invariants.
func (s ProjectScope) Validate() error {
	if s.ResultCap <= 0 {
		return fmt.Errorf("%w: result cap must be positive, got %d", ErrInvalidInput, s.ResultCap)
	}
	return s.DateRange.Validate()
}

// uniqueTrimmed drops blanks and duplicates. Participant identifiers are
// compared case-insensitively since they are usually email addresses.
func uniqueTrimmed(values []string, foldCase bool) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := v
		if foldCase {
			key = strings.ToLower(v)
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
