package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/casebrief/internal/core/domain"
)

func payloadItem(id string, p domain.ItemPayload) domain.ProjectDataItem {
	p.ID = id
	return domain.ProjectDataItem{ServiceID: "gmail", Kind: domain.CapEmail, Payload: p}
}

func ids(items []domain.ProjectDataItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Payload.ID
	}
	return out
}

func TestSelectRelevant_UnderBudgetUnchanged(t *testing.T) {
	items := []domain.ProjectDataItem{
		payloadItem("b", domain.ItemPayload{}),
		payloadItem("a", domain.ItemPayload{Labels: []string{"IMPORTANT"}}),
	}

	got := SelectRelevant(items, 5, SelectOptions{})
	assert.Equal(t, items, got)
}

func TestSelectRelevant_ZeroBudget(t *testing.T) {
	items := []domain.ProjectDataItem{payloadItem("a", domain.ItemPayload{})}
	assert.Empty(t, SelectRelevant(items, 0, SelectOptions{}))
}

func TestSelectRelevant_ImportantWins(t *testing.T) {
	ts := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	items := []domain.ProjectDataItem{
		payloadItem("plain", domain.ItemPayload{Timestamp: ts}),
		payloadItem("important", domain.ItemPayload{Timestamp: ts, Labels: []string{"IMPORTANT"}}),
	}

	got := SelectRelevant(items, 1, SelectOptions{})
	assert.Equal(t, []string{"important"}, ids(got))
}

func TestSelectRelevant_TiesKeepInputOrder(t *testing.T) {
	items := make([]domain.ProjectDataItem, 6)
	for i := range items {
		items[i] = payloadItem(fmt.Sprintf("i%d", i), domain.ItemPayload{})
	}

	got := SelectRelevant(items, 3, SelectOptions{})
	assert.Equal(t, []string{"i0", "i1", "i2"}, ids(got))
}

func TestSelectRelevant_Deterministic(t *testing.T) {
	window := &domain.DateRange{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	}
	var items []domain.ProjectDataItem
	for i := range 40 {
		items = append(items, payloadItem(fmt.Sprintf("i%d", i), domain.ItemPayload{
			Timestamp: window.Start.Add(time.Duration(i) * 36 * time.Hour),
			Body:      strings.Repeat("x", i*30),
		}))
	}

	first := SelectRelevant(items, 10, SelectOptions{Window: window})
	second := SelectRelevant(items, 10, SelectOptions{Window: window})
	assert.Equal(t, first, second)
	assert.Len(t, first, 10)
}

func TestSelectRelevant_OrderedByScore(t *testing.T) {
	ts := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	items := []domain.ProjectDataItem{
		payloadItem("low", domain.ItemPayload{Timestamp: ts, Labels: []string{"SPAM"}}),
		payloadItem("mid", domain.ItemPayload{Timestamp: ts}),
		payloadItem("high", domain.ItemPayload{Timestamp: ts, Labels: []string{"IMPORTANT", "STARRED"}}),
	}

	got := SelectRelevant(items, 2, SelectOptions{})
	assert.Equal(t, []string{"high", "mid"}, ids(got))
}

func TestScoreItem(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		payload domain.ItemPayload
		group   int
		want    float64
	}{
		{"bare item", domain.ItemPayload{}, 0, weightNotPromo},
		{"promotional", domain.ItemPayload{Labels: []string{"CATEGORY_PROMOTIONS"}}, 0, 0},
		{"important and starred", domain.ItemPayload{Labels: []string{"important", "Starred"}}, 0,
			weightImportant + weightStarred + weightNotPromo},
		{"internal", domain.ItemPayload{Sender: "Ann <ann@acme.io>", Recipients: []string{"bob@acme.io"}}, 0,
			weightNotPromo + weightInternal},
		{"public domain is not internal", domain.ItemPayload{Sender: "ann@gmail.com", Recipients: []string{"bob@gmail.com"}}, 0,
			weightNotPromo},
		{"long body", domain.ItemPayload{Body: strings.Repeat("é", 1001)}, 0, weightNotPromo + weightLongBody},
		{"medium body", domain.ItemPayload{Body: strings.Repeat("a", 501)}, 0, weightNotPromo + weightMediumBody},
		{"short body", domain.ItemPayload{Body: strings.Repeat("a", 201)}, 0, weightNotPromo + weightShortBody},
		{"brief body", domain.ItemPayload{Body: strings.Repeat("a", 150)}, 0, weightNotPromo},
		{"attachments", domain.ItemPayload{AttachmentCount: 2}, 0, weightNotPromo + weightAttachments},
		{"large thread", domain.ItemPayload{}, 4, weightNotPromo + weightLargeThread},
		{"thread of three", domain.ItemPayload{}, 3, weightNotPromo + weightThread},
		{"thread of two", domain.ItemPayload{}, 2, weightNotPromo + weightThread},
		{"single message", domain.ItemPayload{}, 1, weightNotPromo},
		{"reported thread size", domain.ItemPayload{ThreadSize: 12}, 1, weightNotPromo + weightLargeThread},
		{"last week", domain.ItemPayload{Timestamp: now.Add(-3 * 24 * time.Hour)}, 0, weightNotPromo + weightLastWeek},
		{"last month", domain.ItemPayload{Timestamp: now.Add(-20 * 24 * time.Hour)}, 0, weightNotPromo + weightLastMonth},
		{"old", domain.ItemPayload{Timestamp: now.Add(-90 * 24 * time.Hour)}, 0, weightNotPromo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := payloadItem("x", tt.payload)
			assert.InDelta(t, tt.want, ScoreItem(item, tt.group, nil, now), 1e-9)
		})
	}
}

func TestScoreItem_Window(t *testing.T) {
	window := &domain.DateRange{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC),
	}
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	at := func(d time.Duration) domain.ProjectDataItem {
		return payloadItem("x", domain.ItemPayload{Timestamp: window.Start.Add(d)})
	}

	assert.InDelta(t, weightNotPromo+weightInWindow, ScoreItem(at(0), 0, window, now), 1e-9)
	assert.InDelta(t, weightNotPromo+weightInWindow+1.0, ScoreItem(at(5*24*time.Hour), 0, window, now), 1e-9)
	assert.InDelta(t, weightNotPromo+weightInWindow+weightWindowRecent, ScoreItem(at(10*24*time.Hour), 0, window, now), 1e-9)
	assert.InDelta(t, weightNotPromo, ScoreItem(at(11*24*time.Hour), 0, window, now), 1e-9)
}

func TestSelectRelevant_ThreadGroupingFromCandidates(t *testing.T) {
	var items []domain.ProjectDataItem
	for i := range 4 {
		items = append(items, payloadItem(fmt.Sprintf("t%d", i), domain.ItemPayload{ThreadID: "thread-1"}))
	}
	items = append(items, payloadItem("solo-a", domain.ItemPayload{}), payloadItem("solo-b", domain.ItemPayload{}))

	got := SelectRelevant(items, 4, SelectOptions{})
	require.Len(t, got, 4)
	assert.Equal(t, []string{"t0", "t1", "t2", "t3"}, ids(got))
}

func TestSelectRelevant_SmallThreadOutranksSingle(t *testing.T) {
	items := []domain.ProjectDataItem{
		payloadItem("solo", domain.ItemPayload{}),
		payloadItem("pair-a", domain.ItemPayload{ThreadID: "t1"}),
		payloadItem("pair-b", domain.ItemPayload{ThreadID: "t1"}),
	}

	got := SelectRelevant(items, 1, SelectOptions{})
	assert.Equal(t, []string{"pair-a"}, ids(got))
}

func TestSelectRelevant_ScopedScenario(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	scope, err := domain.NewProjectScope([]string{"launch"}, []string{"a@x.com"}, day(1), day(31), 2)
	require.NoError(t, err)

	from := func(id string, ts time.Time, p domain.ItemPayload) domain.ProjectDataItem {
		p.Sender = "a@x.com"
		p.Timestamp = ts
		return payloadItem(id, p)
	}
	items := []domain.ProjectDataItem{
		from("kickoff", day(1), domain.ItemPayload{AttachmentCount: 1}),
		from("design", day(10), domain.ItemPayload{Labels: []string{"CATEGORY_PROMOTIONS"}}),
		from("launch", day(16), domain.ItemPayload{Labels: []string{"IMPORTANT"}}),
		from("checkin", day(20), domain.ItemPayload{}),
		from("retro", day(31), domain.ItemPayload{}),
	}

	window := scope.DateRange
	got := SelectRelevant(items, scope.ResultCap, SelectOptions{Window: &window})

	// kickoff and retro tie; the earlier candidate wins.
	assert.Equal(t, []string{"launch", "kickoff"}, ids(got))
}

func TestSelectRelevant_ReturnsMinOfCountAndBudget(t *testing.T) {
	window := &domain.DateRange{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		n, budget int
	}{
		{0, 3}, {2, 3}, {3, 3}, {5, 2}, {10, 1}, {25, 7},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d budget=%d", tt.n, tt.budget), func(t *testing.T) {
			input := make(map[string]bool, tt.n)
			var items []domain.ProjectDataItem
			for i := range tt.n {
				id := fmt.Sprintf("i%d", i)
				input[id] = true
				items = append(items, payloadItem(id, domain.ItemPayload{
					Timestamp: window.Start.Add(time.Duration(i*7) * time.Hour),
					Body:      strings.Repeat("x", (i%4)*300),
				}))
			}

			got := SelectRelevant(items, tt.budget, SelectOptions{Window: window})
			require.Len(t, got, min(tt.n, tt.budget))
			seen := make(map[string]bool)
			for _, id := range ids(got) {
				assert.True(t, input[id], "unexpected item %s", id)
				assert.False(t, seen[id], "duplicate item %s", id)
				seen[id] = true
			}
		})
	}
}
