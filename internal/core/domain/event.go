package domain

import "time"

// EventKind distinguishes streaming events.
type EventKind string

const (
	EventSectionStart EventKind = "section_start"
	EventContent      EventKind = "content"
	EventSectionEnd   EventKind = "section_end"
	EventMetadata     EventKind = "metadata"
	EventError        EventKind = "error"
)

// StreamingEvent is one unit of incremental generation output.
// Exactly one metadata or error event terminates a stream.
type StreamingEvent struct {
	JobID       string         `json:"job_id"`
	Kind        EventKind      `json:"type"`
	Text        string         `json:"content,omitempty"`
	SectionName string         `json:"section,omitempty"`
	Payload     map[string]any `json:"metadata,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// IsTerminal reports whether the event ends its stream.
func (e StreamingEvent) IsTerminal() bool {
	return e.Kind == EventMetadata || e.Kind == EventError
}
