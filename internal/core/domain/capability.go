package domain

import "strings"

// ServiceCapability describes the kinds of items a connector produces.
// This is a bitfield allowing connectors to produce several kinds.
type ServiceCapability uint8

const (
	// CapNone indicates no item kinds.
	CapNone ServiceCapability = 0
	// CapEmail indicates messages with sender and recipients.
	CapEmail ServiceCapability = 1 << 0
	// CapDocument indicates files and documents.
	CapDocument ServiceCapability = 1 << 1
	// CapTicket indicates issues, tickets and pull requests.
	CapTicket ServiceCapability = 1 << 2
	// CapEvent indicates calendar events and meetings.
	CapEvent ServiceCapability = 1 << 3
)

// Has returns true if every bit of other is set.
func (c ServiceCapability) Has(other ServiceCapability) bool {
	return other != CapNone && c&other == other
}

// String returns a human-readable representation.
func (c ServiceCapability) String() string {
	if c == CapNone {
		return "none"
	}
	var parts []string
	if c.Has(CapEmail) {
		parts = append(parts, "email")
	}
	if c.Has(CapDocument) {
		parts = append(parts, "document")
	}
	if c.Has(CapTicket) {
		parts = append(parts, "ticket")
	}
	if c.Has(CapEvent) {
		parts = append(parts, "event")
	}
	return strings.Join(parts, ",")
}
