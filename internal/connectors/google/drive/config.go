package drive

import (
	"strings"
	"time"

	"github.com/custodia-labs/casebrief/internal/core/domain"
)

// maxPageSize is the largest page files.list accepts.
const maxPageSize = 1000

// listFields requests only what items are built from.
const listFields = "nextPageToken, files(id,name,mimeType,size,modifiedTime,starred,shared,description," +
	"webViewLink,owners(displayName,emailAddress),lastModifyingUser(displayName,emailAddress)," +
	"permissions(emailAddress))"

// ContentType identifies which files are fetched.
type ContentType string

const (
	// ContentFiles covers regular uploaded files.
	ContentFiles ContentType = "files"
	// ContentDocs covers Google Docs and Slides (exported to text).
	ContentDocs ContentType = "docs"
	// ContentSheets covers Google Sheets (exported to CSV).
	ContentSheets ContentType = "sheets"
)

// DefaultContentTypes are the content types fetched by default.
var DefaultContentTypes = []ContentType{ContentFiles, ContentDocs, ContentSheets}

// Config holds Google Drive connector configuration.
type Config struct {
	// ContentTypes specifies what types of content to fetch.
	ContentTypes []ContentType
	// PreviewChars bounds the exported text kept per file. Zero disables
	// content export and keeps only the description.
	PreviewChars int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		ContentTypes: DefaultContentTypes,
		PreviewChars: 2000,
	}
}

// HasContentType checks if a content type is enabled.
func (c Config) HasContentType(ct ContentType) bool {
	for _, t := range c.ContentTypes {
		if t == ct {
			return true
		}
	}
	return false
}

// BuildQuery renders a scope as a Drive files.list query. Keywords match
// the name or full text, participants match owners or people the file is
// shared with, and the window bounds modifiedTime.
func BuildQuery(scope domain.ProjectScope) string {
	clauses := []string{"trashed = false", "mimeType != '" + MimeTypeFolder + "'"}

	if len(scope.Keywords) > 0 {
		terms := make([]string, 0, 2*len(scope.Keywords))
		for _, k := range scope.Keywords {
			k = escape(k)
			terms = append(terms, "name contains '"+k+"'", "fullText contains '"+k+"'")
		}
		clauses = append(clauses, "("+strings.Join(terms, " or ")+")")
	}

	if len(scope.Participants) > 0 {
		terms := make([]string, 0, 3*len(scope.Participants))
		for _, p := range scope.Participants {
			p = escape(p)
			terms = append(terms, "'"+p+"' in owners", "'"+p+"' in writers", "'"+p+"' in readers")
		}
		clauses = append(clauses, "("+strings.Join(terms, " or ")+")")
	}

	if !scope.DateRange.Start.IsZero() {
		clauses = append(clauses, "modifiedTime >= '"+scope.DateRange.Start.UTC().Format(time.RFC3339)+"'")
	}
	if !scope.DateRange.End.IsZero() {
		clauses = append(clauses, "modifiedTime <= '"+scope.DateRange.End.UTC().Format(time.RFC3339)+"'")
	}
	return strings.Join(clauses, " and ")
}

// escape quotes a value for a single-quoted Drive query string.
func escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
