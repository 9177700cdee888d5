package services

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/casebrief/internal/core/domain"
)

// Relevance weights.
const (
	weightImportant    = 4.0
	weightStarred      = 3.0
	weightNotPromo     = 2.0
	weightInternal     = 2.0
	weightLongBody     = 3.0
	weightMediumBody   = 2.0
	weightShortBody    = 1.0
	weightAttachments  = 2.0
	weightLargeThread  = 3.0
	weightThread       = 2.0
	weightInWindow     = 3.0
	weightWindowRecent = 2.0
	weightLastWeek     = 2.0
	weightLastMonth    = 1.0

	longBodyChars   = 1000
	mediumBodyChars = 500
	shortBodyChars  = 200
	largeThreadSize = 3
	threadSize      = 1
)

// publicMailDomains never count as a shared organisation.
var publicMailDomains = map[string]struct{}{
	"gmail.com":      {},
	"googlemail.com": {},
	"outlook.com":    {},
	"hotmail.com":    {},
	"live.com":       {},
	"yahoo.com":      {},
	"icloud.com":     {},
	"proton.me":      {},
	"protonmail.com": {},
}

// SelectOptions parameterise relevance scoring.
type SelectOptions struct {
	// Window, when set, rewards items inside it and recency within it.
	Window *domain.DateRange
	// Now is the reference time for recency without a window. When zero,
	// the newest item timestamp is used so selection stays deterministic.
	Now time.Time
}

// SelectRelevant returns the budget highest-scoring items, ordered by
// descending score with ties kept in input order. When items fit the
// budget they are returned unchanged.
func SelectRelevant(items []domain.ProjectDataItem, budget int, opts SelectOptions) []domain.ProjectDataItem {
	if budget <= 0 {
		return []domain.ProjectDataItem{}
	}
	if len(items) <= budget {
		out := make([]domain.ProjectDataItem, len(items))
		copy(out, items)
		return out
	}

	now := opts.Now
	if now.IsZero() {
		now = newestTimestamp(items)
	}
	threads := threadSizes(items)

	scores := make([]float64, len(items))
	for i := range items {
		scores[i] = ScoreItem(items[i], threads[threadKey(items[i])], opts.Window, now)
	}

	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})

	out := make([]domain.ProjectDataItem, budget)
	for i := range budget {
		out[i] = items[idx[i]]
	}
	return out
}

// ScoreItem computes the relevance of one item. groupSize is the number
// of items sharing its thread in the candidate set.
func ScoreItem(item domain.ProjectDataItem, groupSize int, window *domain.DateRange, now time.Time) float64 {
	p := item.Payload
	score := 0.0

	// Importance signals.
	if hasLabel(p.Labels, "important") {
		score += weightImportant
	}
	if hasLabel(p.Labels, "starred") {
		score += weightStarred
	}
	if !hasLabel(p.Labels, "spam", "promotions", "category_promotions") {
		score += weightNotPromo
	}
	if sharesOrganisation(p.Sender, p.Recipients) {
		score += weightInternal
	}

	// Substantiveness.
	switch n := utf8.RuneCountInString(p.Body); {
	case n > longBodyChars:
		score += weightLongBody
	case n > mediumBodyChars:
		score += weightMediumBody
	case n > shortBodyChars:
		score += weightShortBody
	}
	if p.AttachmentCount > 0 {
		score += weightAttachments
	}

	// Conversational weight.
	switch n := max(groupSize, p.ThreadSize); {
	case n > largeThreadSize:
		score += weightLargeThread
	case n > threadSize:
		score += weightThread
	}

	// Temporal relevance.
	if window != nil {
		if window.Contains(p.Timestamp) {
			score += weightInWindow
			span := window.End.Sub(window.Start)
			if span <= 0 {
				score += weightWindowRecent
			} else {
				score += weightWindowRecent * float64(p.Timestamp.Sub(window.Start)) / float64(span)
			}
		}
	} else if !p.Timestamp.IsZero() {
		age := now.Sub(p.Timestamp)
		switch {
		case age <= 7*24*time.Hour:
			score += weightLastWeek
		case age <= 30*24*time.Hour:
			score += weightLastMonth
		}
	}
	return score
}

func hasLabel(labels []string, names ...string) bool {
	for _, l := range labels {
		for _, n := range names {
			if strings.EqualFold(l, n) {
				return true
			}
		}
	}
	return false
}

func sharesOrganisation(sender string, recipients []string) bool {
	domainOf := func(addr string) string {
		at := strings.LastIndexByte(addr, '@')
		if at < 0 {
			return ""
		}
		d := strings.ToLower(strings.Trim(addr[at+1:], "> "))
		if _, public := publicMailDomains[d]; public {
			return ""
		}
		return d
	}
	from := domainOf(sender)
	if from == "" {
		return false
	}
	for _, r := range recipients {
		if domainOf(r) == from {
			return true
		}
	}
	return false
}

func threadKey(item domain.ProjectDataItem) string {
	if item.Payload.ThreadID == "" {
		return ""
	}
	return item.ServiceID + "\x00" + item.Payload.ThreadID
}

func threadSizes(items []domain.ProjectDataItem) map[string]int {
	sizes := make(map[string]int)
	for _, it := range items {
		if k := threadKey(it); k != "" {
			sizes[k]++
		}
	}
	return sizes
}

func newestTimestamp(items []domain.ProjectDataItem) time.Time {
	var newest time.Time
	for _, it := range items {
		if it.Payload.Timestamp.After(newest) {
			newest = it.Payload.Timestamp
		}
	}
	return newest
}
