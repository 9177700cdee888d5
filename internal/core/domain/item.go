package domain

import (
	"slices"
	"time"
)

// ItemPayload is the connector-neutral content of a fetched record.
// Connectors fill what their service offers and leave the rest zero.
type ItemPayload struct {
	// ID is the service-native identifier.
	ID string `json:"id"`
	// Title is the subject, file name or issue title.
	Title string `json:"title"`
	// Sender is the author, sender or owner.
	Sender string `json:"sender,omitempty"`
	// Recipients are addressees, attendees or assignees.
	Recipients []string `json:"recipients,omitempty"`
	// Timestamp is when the record was sent, modified or updated.
	Timestamp time.Time `json:"timestamp"`
	// Body is the text content or a preview of it.
	Body string `json:"body,omitempty"`
	// Labels are service tags such as IMPORTANT, STARRED or issue labels.
	Labels []string `json:"labels,omitempty"`
	// AttachmentCount is the number of attached files.
	AttachmentCount int `json:"attachment_count,omitempty"`
	// ThreadID groups related records (mail thread, recurring event).
	ThreadID string `json:"thread_id,omitempty"`
	// ThreadSize is a service-reported group size, such as comment count.
	ThreadSize int `json:"thread_size,omitempty"`
	// URL links back to the record in the service UI.
	URL string `json:"url,omitempty"`
	// MimeType is set for documents.
	MimeType string `json:"mime_type,omitempty"`
}

// ProjectDataItem is one record fetched from a connector.
type ProjectDataItem struct {
	ServiceID string            `json:"service_id"`
	Kind      ServiceCapability `json:"kind"`
	Payload   ItemPayload       `json:"payload"`
}

// ServiceFetchMetadata describes one service's part of a fetch.
type ServiceFetchMetadata struct {
	ServiceID string        `json:"service_id"`
	Count     int           `json:"count"`
	Duration  time.Duration `json:"duration"`
	// Query is the service-native query that was issued.
	Query string `json:"query,omitempty"`
	// Note explains an empty result, e.g. "not connected".
	Note string `json:"note,omitempty"`
	// Errors are non-fatal per-record failures.
	Errors []string `json:"errors,omitempty"`
}

// ServiceFetchResult is what a connector returns from one fetch.
type ServiceFetchResult struct {
	Items    []ProjectDataItem
	Metadata ServiceFetchMetadata
}

// ProjectDataBundle is the merged output of all connectors for one scope.
type ProjectDataBundle struct {
	// Items in service registration order, each service's items in the
	// order its connector returned them.
	Items []ProjectDataItem `json:"items"`
	// Services lists every service attempted, in registration order.
	Services []string `json:"services"`
	// PerService holds fetch metadata keyed by service ID.
	PerService map[string]ServiceFetchMetadata `json:"per_service"`
	// Errors records services that failed; their items are absent.
	Errors         []*ServiceError `json:"-"`
	FetchTimestamp time.Time       `json:"fetch_timestamp"`
}

// NewProjectDataBundle returns an empty bundle stamped with now.
func NewProjectDataBundle(now time.Time) *ProjectDataBundle {
	return &ProjectDataBundle{
		PerService:     make(map[string]ServiceFetchMetadata),
		FetchTimestamp: now,
	}
}

// SucceededServices returns attempted services that did not fail.
func (b *ProjectDataBundle) SucceededServices() []string {
	failed := make(map[string]struct{}, len(b.Errors))
	for _, e := range b.Errors {
		failed[e.ServiceID] = struct{}{}
	}
	out := make([]string, 0, len(b.Services))
	for _, s := range b.Services {
		if _, ok := failed[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}

// ItemsFor returns the items fetched from one service.
func (b *ProjectDataBundle) ItemsFor(serviceID string) []ProjectDataItem {
	var out []ProjectDataItem
	for _, it := range b.Items {
		if it.ServiceID == serviceID {
			out = append(out, it)
		}
	}
	return out
}

// WithItems returns a shallow copy of b carrying items instead.
func (b *ProjectDataBundle) WithItems(items []ProjectDataItem) *ProjectDataBundle {
	out := *b
	out.Items = items
	out.Services = slices.Clone(b.Services)
	out.Errors = slices.Clone(b.Errors)
	return &out
}
