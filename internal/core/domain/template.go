package domain

import (
	"fmt"
	"strings"
)

// Template selects the emphasis of a generated case study.
type Template string

const (
	TemplateComprehensive Template = "comprehensive"
	TemplateTechnical     Template = "technical"
	TemplateMarketing     Template = "marketing"
	TemplateProduct       Template = "product"
	TemplateCustom        Template = "custom"
)

// Templates lists every template in display order.
func Templates() []Template {
	return []Template{TemplateComprehensive, TemplateTechnical, TemplateMarketing, TemplateProduct, TemplateCustom}
}

// ParseTemplate resolves a template name. An empty name selects
// TemplateComprehensive.
func ParseTemplate(s string) (Template, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return TemplateComprehensive, nil
	}
	for _, t := range Templates() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown template %q", ErrInvalidInput, s)
}
