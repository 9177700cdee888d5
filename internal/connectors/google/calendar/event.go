package calendar

import (
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/custodia-labs/casebrief/internal/connectors"
	"github.com/custodia-labs/casebrief/internal/core/domain"
)

// EventToItem converts a calendar event.
func EventToItem(event *calendar.Event, bodyChars int) domain.ProjectDataItem {
	title := event.Summary
	if title == "" {
		title = "(No title)"
	}

	return domain.ProjectDataItem{
		ServiceID: ServiceID,
		Kind:      domain.CapEvent,
		Payload: domain.ItemPayload{
			ID:              event.Id,
			Title:           title,
			Sender:          organiser(event),
			Recipients:      attendees(event),
			Timestamp:       startTime(event),
			Body:            connectors.Preview(buildEventContent(event), bodyChars),
			AttachmentCount: len(event.Attachments),
			ThreadID:        event.RecurringEventId,
			URL:             event.HtmlLink,
		},
	}
}

// buildEventContent joins the description, location and conference link.
func buildEventContent(event *calendar.Event) string {
	var parts []string
	if event.Description != "" {
		parts = append(parts, event.Description)
	}
	if event.Location != "" {
		parts = append(parts, "Location: "+event.Location)
	}
	if event.HangoutLink != "" {
		parts = append(parts, "Meeting: "+event.HangoutLink)
	}
	return strings.Join(parts, "\n\n")
}

// attendees lists attendee addresses, skipping resources such as rooms.
func attendees(event *calendar.Event) []string {
	var out []string
	for _, a := range event.Attendees {
		if a.Resource || a.Email == "" {
			continue
		}
		out = append(out, a.Email)
	}
	return out
}

// startTime reads a timed or all-day start.
func startTime(event *calendar.Event) time.Time {
	if event.Start == nil {
		return time.Time{}
	}
	if event.Start.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, event.Start.DateTime); err == nil {
			return t.UTC()
		}
	}
	if event.Start.Date != "" {
		if t, err := time.Parse(time.DateOnly, event.Start.Date); err == nil {
			return t
		}
	}
	return time.Time{}
}

// organiser extracts the organiser email from an event.
func organiser(event *calendar.Event) string {
	if event.Organizer != nil { //nolint:misspell // Google API field name
		return event.Organizer.Email //nolint:misspell // Google API field name
	}
	if event.Creator != nil {
		return event.Creator.Email
	}
	return ""
}

// wanted skips cancelled and malformed events.
func wanted(event *calendar.Event) bool {
	return event != nil && event.Id != "" && event.Status != "cancelled"
}
