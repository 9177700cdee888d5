package gmail

import (
	"encoding/base64"
	"net/mail"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"

	"github.com/custodia-labs/casebrief/internal/connectors"
	"github.com/custodia-labs/casebrief/internal/core/domain"
)

// ServiceID identifies the Gmail connector.
const ServiceID = "gmail"

// MessageToItem converts a message fetched with Format("full").
func MessageToItem(msg *gmail.Message, bodyChars int) domain.ProjectDataItem {
	headers := headerMap(msg.Payload)

	subject := headers["subject"]
	if subject == "" {
		subject = "No Subject"
	}

	body := ""
	if msg.Payload != nil {
		body = textBody(msg.Payload)
	}
	if body == "" {
		body = msg.Snippet
	}

	recipients := addresses(headers["to"])
	recipients = append(recipients, addresses(headers["cc"])...)

	return domain.ProjectDataItem{
		ServiceID: ServiceID,
		Kind:      domain.CapEmail,
		Payload: domain.ItemPayload{
			ID:              msg.Id,
			Title:           subject,
			Sender:          sender(headers["from"]),
			Recipients:      recipients,
			Timestamp:       messageTime(msg, headers["date"]),
			Body:            connectors.Preview(body, bodyChars),
			Labels:          msg.LabelIds,
			AttachmentCount: countAttachments(msg.Payload),
			ThreadID:        msg.ThreadId,
			URL:             WebURL(msg.Id),
		},
	}
}

// headerMap lowercases header names; the first occurrence wins.
func headerMap(part *gmail.MessagePart) map[string]string {
	out := make(map[string]string)
	if part == nil {
		return out
	}
	for _, h := range part.Headers {
		name := strings.ToLower(h.Name)
		if _, ok := out[name]; !ok {
			out[name] = h.Value
		}
	}
	return out
}

// sender returns the bare address of a From header, or the raw value.
func sender(from string) string {
	if from == "" {
		return "Unknown Sender"
	}
	if addr, err := mail.ParseAddress(from); err == nil {
		return addr.Address
	}
	return strings.TrimSpace(from)
}

// addresses parses an address list header, falling back to a comma split.
func addresses(header string) []string {
	if strings.TrimSpace(header) == "" {
		return nil
	}
	if list, err := mail.ParseAddressList(header); err == nil {
		out := make([]string, len(list))
		for i, a := range list {
			out[i] = a.Address
		}
		return out
	}
	var out []string
	for _, part := range strings.Split(header, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// messageTime prefers Gmail's internal date over the Date header.
func messageTime(msg *gmail.Message, dateHeader string) time.Time {
	if msg.InternalDate > 0 {
		return time.UnixMilli(msg.InternalDate).UTC()
	}
	if t, err := mail.ParseDate(dateHeader); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

// textBody returns the first text/plain part, depth first.
func textBody(part *gmail.MessagePart) string {
	if part.MimeType == "text/plain" && part.Filename == "" && part.Body != nil && part.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(part.Body.Data)
		if err != nil {
			data, err = base64.RawURLEncoding.DecodeString(part.Body.Data)
		}
		if err == nil {
			return string(data)
		}
	}
	for _, child := range part.Parts {
		if text := textBody(child); text != "" {
			return text
		}
	}
	return ""
}

// countAttachments counts parts that carry a file name.
func countAttachments(part *gmail.MessagePart) int {
	if part == nil {
		return 0
	}
	n := 0
	if part.Filename != "" {
		n++
	}
	for _, child := range part.Parts {
		n += countAttachments(child)
	}
	return n
}

// isSpamOrTrash checks if the message has spam or trash labels.
func isSpamOrTrash(labels []string) bool {
	for _, label := range labels {
		if label == "SPAM" || label == "TRASH" {
			return true
		}
	}
	return false
}
