package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/casebrief/internal/core/domain"
	"github.com/custodia-labs/casebrief/internal/core/ports/driven"
)

// previewChars bounds how much of each item body reaches the model.
const previewChars = 500

// PromptBuilder renders system and user prompts for a case study.
type PromptBuilder struct {
	store driven.PromptStore
}

// NewPromptBuilder creates a builder backed by a prompt store.
func NewPromptBuilder(store driven.PromptStore) *PromptBuilder {
	return &PromptBuilder{store: store}
}

// SystemPrompt combines the base prompt with the template emphasis and any
// custom instructions.
func (b *PromptBuilder) SystemPrompt(tpl domain.Template, customInstructions string) (string, error) {
	base, err := b.store.Load(driven.PromptSystemBase)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}

	var sb strings.Builder
	sb.WriteString(base)

	if name := templatePrompt(tpl); name != "" {
		extra, err := b.store.Load(name)
		if err != nil {
			return "", fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
		}
		sb.WriteString("\n\n")
		sb.WriteString(extra)
	}

	if custom := strings.TrimSpace(customInstructions); custom != "" {
		sb.WriteString("\n\nAdditional Instructions:\n")
		sb.WriteString(custom)
	}
	return sb.String(), nil
}

func templatePrompt(tpl domain.Template) string {
	switch tpl {
	case domain.TemplateTechnical:
		return driven.PromptTemplateTechnical
	case domain.TemplateMarketing:
		return driven.PromptTemplateMarketing
	case domain.TemplateProduct:
		return driven.PromptTemplateProduct
	default:
		return ""
	}
}

// itemGroup is one heading of the user prompt.
type itemGroup struct {
	kind    domain.ServiceCapability
	heading string
	label   string
}

var itemGroups = []itemGroup{
	{domain.CapEmail, "Email Communications", "Email"},
	{domain.CapDocument, "Project Documents", "Document"},
	{domain.CapTicket, "Issues and Tickets", "Issue"},
	{domain.CapEvent, "Meetings and Events", "Event"},
}

// UserPrompt formats selected project data for the model.
func (b *PromptBuilder) UserPrompt(projectName string, bundle *domain.ProjectDataBundle) (string, error) {
	preamble, err := b.store.Load(driven.PromptUserPreamble)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	if projectName == "" {
		projectName = "this project"
	}

	var sb strings.Builder
	sb.WriteString(strings.ReplaceAll(preamble, driven.ProjectPlaceholder, projectName))
	sb.WriteString("\n")

	for _, g := range itemGroups {
		n := 0
		for _, it := range bundle.Items {
			if it.Kind != g.kind {
				continue
			}
			if n == 0 {
				fmt.Fprintf(&sb, "\n## %s\n", g.heading)
			}
			n++
			writeItem(&sb, g.label, n, it)
		}
	}

	writeMetadata(&sb, bundle)
	return sb.String(), nil
}

func writeItem(sb *strings.Builder, label string, n int, it domain.ProjectDataItem) {
	p := it.Payload
	fmt.Fprintf(sb, "\n%s %d (%s):\n", label, n, it.ServiceID)
	fmt.Fprintf(sb, "Title: %s\n", p.Title)
	if p.Sender != "" {
		fmt.Fprintf(sb, "From: %s\n", p.Sender)
	}
	if len(p.Recipients) > 0 {
		fmt.Fprintf(sb, "To: %s\n", strings.Join(p.Recipients, ", "))
	}
	if !p.Timestamp.IsZero() {
		fmt.Fprintf(sb, "Date: %s\n", p.Timestamp.Format(time.RFC3339))
	}
	if len(p.Labels) > 0 {
		fmt.Fprintf(sb, "Labels: %s\n", strings.Join(p.Labels, ", "))
	}
	if p.AttachmentCount > 0 {
		fmt.Fprintf(sb, "Attachments: %d\n", p.AttachmentCount)
	}
	if body := truncateRunes(strings.TrimSpace(p.Body), previewChars); body != "" {
		fmt.Fprintf(sb, "Content: %s\n", body)
	}
}

func writeMetadata(sb *strings.Builder, bundle *domain.ProjectDataBundle) {
	sb.WriteString("\n## Project Metadata\n")
	fmt.Fprintf(sb, "Items provided: %d\n", len(bundle.Items))
	fmt.Fprintf(sb, "Data fetched: %s\n", bundle.FetchTimestamp.Format(time.RFC3339))

	services := make([]string, 0, len(bundle.PerService))
	for id := range bundle.PerService {
		services = append(services, id)
	}
	sort.Strings(services)
	for _, id := range services {
		fmt.Fprintf(sb, "- %s: %d items fetched\n", id, bundle.PerService[id].Count)
	}
	for _, e := range bundle.Errors {
		fmt.Fprintf(sb, "- %s: unavailable (%s)\n", e.ServiceID, e.Kind())
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
