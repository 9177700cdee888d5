package services

import (
	"strings"

	"github.com/custodia-labs/casebrief/internal/core/domain"
)

// Headings that hold the structured parts of a case study.
var (
	summaryHeadings        = []string{"executive summary"}
	insightHeadings        = []string{"key insights", "lessons learned"}
	recommendationHeadings = []string{"recommendations", "best practices"}
)

// ExtractResult pulls the executive summary, key insights and
// recommendations out of generated markdown. Only markdown headings
// delimit sections here; list items may be bulleted or numbered.
func ExtractResult(text string) domain.CaseStudyResult {
	lines := strings.Split(text, "\n")
	return domain.CaseStudyResult{
		ExecutiveSummary: strings.TrimSpace(strings.Join(sectionLines(lines, summaryHeadings), "\n")),
		KeyInsights:      listItems(sectionLines(lines, insightHeadings)),
		Recommendations:  listItems(sectionLines(lines, recommendationHeadings)),
	}
}

// sectionLines returns the body of the first heading matching any of
// names, up to the next heading.
func sectionLines(lines []string, names []string) []string {
	start := -1
	for i, line := range lines {
		heading, ok := markdownHeading(line)
		if !ok {
			continue
		}
		if start >= 0 {
			return lines[start:i]
		}
		if matchesAny(heading, names) {
			start = i + 1
		}
	}
	if start < 0 {
		return nil
	}
	return lines[start:]
}

func markdownHeading(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "#") {
		return "", false
	}
	return strings.ToLower(strings.TrimSpace(strings.TrimLeft(trimmed, "#"))), true
}

func matchesAny(heading string, names []string) bool {
	for _, n := range names {
		if strings.Contains(heading, n) {
			return true
		}
	}
	return false
}

// listItems keeps "-", "*" and "1." / "1)" list entries, markers removed.
func listItems(lines []string) []string {
	var items []string
	for _, line := range lines {
		if item, ok := listItem(strings.TrimSpace(line)); ok {
			items = append(items, item)
		}
	}
	return items
}

func listItem(line string) (string, bool) {
	if rest, ok := strings.CutPrefix(line, "- "); ok {
		return nonEmpty(rest)
	}
	if rest, ok := strings.CutPrefix(line, "* "); ok {
		return nonEmpty(rest)
	}
	digits := 0
	for digits < len(line) && line[digits] >= '0' && line[digits] <= '9' {
		digits++
	}
	if digits == 0 || digits == len(line) {
		return "", false
	}
	if line[digits] != '.' && line[digits] != ')' {
		return "", false
	}
	return nonEmpty(line[digits+1:])
}

func nonEmpty(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}
