package github

import (
	"fmt"
	"strings"

	gh "github.com/google/go-github/v80/github"

	"github.com/custodia-labs/casebrief/internal/connectors"
	"github.com/custodia-labs/casebrief/internal/core/domain"
)

// IssueToItem converts a search hit into a ticket-like item.
func IssueToItem(issue *gh.Issue, bodyChars int) domain.ProjectDataItem {
	repo := repoName(issue.GetRepositoryURL())

	title := issue.GetTitle()
	if repo != "" {
		title = fmt.Sprintf("[%s#%d] %s", repo, issue.GetNumber(), title)
	}

	labels := []string{strings.ToUpper(issue.GetState())}
	if issue.IsPullRequest() {
		labels = append(labels, "PULL_REQUEST")
	}
	for _, l := range issue.Labels {
		if name := l.GetName(); name != "" {
			labels = append(labels, name)
		}
	}

	var assignees []string
	for _, a := range issue.Assignees {
		if login := a.GetLogin(); login != "" {
			assignees = append(assignees, login)
		}
	}

	timestamp := issue.GetUpdatedAt().Time
	if timestamp.IsZero() {
		timestamp = issue.GetCreatedAt().Time
	}

	return domain.ProjectDataItem{
		ServiceID: ServiceID,
		Kind:      domain.CapTicket,
		Payload: domain.ItemPayload{
			ID:         fmt.Sprintf("%s#%d", repo, issue.GetNumber()),
			Title:      title,
			Sender:     issue.GetUser().GetLogin(),
			Recipients: assignees,
			Timestamp:  timestamp.UTC(),
			Body:       connectors.Preview(issue.GetBody(), bodyChars),
			Labels:     labels,
			ThreadID:   fmt.Sprintf("%s#%d", repo, issue.GetNumber()),
			ThreadSize: issue.GetComments() + 1,
			URL:        issue.GetHTMLURL(),
		},
	}
}

// repoName turns ".../repos/{owner}/{repo}" into "owner/repo".
func repoName(repositoryURL string) string {
	_, after, ok := strings.Cut(repositoryURL, "/repos/")
	if !ok {
		return ""
	}
	return strings.TrimSuffix(after, "/")
}
