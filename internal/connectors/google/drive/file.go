package drive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/casebrief/internal/connectors"
	"github.com/custodia-labs/casebrief/internal/core/domain"
)

// Google Workspace MIME types.
const (
	MimeTypeGoogleDoc    = "application/vnd.google-apps.document"
	MimeTypeGoogleSheet  = "application/vnd.google-apps.spreadsheet"
	MimeTypeGoogleSlides = "application/vnd.google-apps.presentation"
	MimeTypeFolder       = "application/vnd.google-apps.folder"
)

// exportAs maps Workspace types to the text format their preview is
// exported in. Other types are downloaded when textual.
var exportAs = map[string]string{
	MimeTypeGoogleDoc:    "text/plain",
	MimeTypeGoogleSlides: "text/plain",
	MimeTypeGoogleSheet:  "text/csv",
}

// maxDownloadSize skips stored files too large to be worth previewing.
const maxDownloadSize = 5 << 20

// FileToItem converts a Drive file and its content preview.
func FileToItem(file *drive.File, preview string) domain.ProjectDataItem {
	var labels []string
	if file.Starred {
		labels = append(labels, "STARRED")
	}
	if file.Shared {
		labels = append(labels, "SHARED")
	}

	body := preview
	if body == "" {
		body = file.Description
	}

	return domain.ProjectDataItem{
		ServiceID: ServiceID,
		Kind:      domain.CapDocument,
		Payload: domain.ItemPayload{
			ID:         file.Id,
			Title:      file.Name,
			Sender:     owner(file),
			Recipients: sharedWith(file),
			Timestamp:  parseTime(file.ModifiedTime),
			Body:       body,
			Labels:     labels,
			URL:        WebURL(file),
			MimeType:   file.MimeType,
		},
	}
}

// owner returns the first owner's address, or the last modifying user.
func owner(file *drive.File) string {
	for _, o := range file.Owners {
		if o.EmailAddress != "" {
			return o.EmailAddress
		}
		if o.DisplayName != "" {
			return o.DisplayName
		}
	}
	if u := file.LastModifyingUser; u != nil {
		if u.EmailAddress != "" {
			return u.EmailAddress
		}
		return u.DisplayName
	}
	return ""
}

// sharedWith lists permission addresses other than the owner's.
func sharedWith(file *drive.File) []string {
	ownerAddr := owner(file)
	var out []string
	seen := map[string]bool{}
	for _, p := range file.Permissions {
		addr := strings.ToLower(p.EmailAddress)
		if addr == "" || addr == strings.ToLower(ownerAddr) || seen[addr] {
			continue
		}
		seen[addr] = true
		out = append(out, p.EmailAddress)
	}
	return out
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// Wanted checks a file against the configured content types.
func Wanted(file *drive.File, cfg Config) bool {
	switch file.MimeType {
	case MimeTypeFolder:
		return false
	case MimeTypeGoogleDoc, MimeTypeGoogleSlides:
		return cfg.HasContentType(ContentDocs)
	case MimeTypeGoogleSheet:
		return cfg.HasContentType(ContentSheets)
	default:
		return cfg.HasContentType(ContentFiles)
	}
}

// fetchPreview returns up to n characters of a file's text. Binary and
// oversized files have no preview.
func fetchPreview(ctx context.Context, svc *drive.Service, file *drive.File, n int) (string, error) {
	var (
		resp *http.Response
		err  error
	)
	if format, ok := exportAs[file.MimeType]; ok {
		resp, err = svc.Files.Export(file.Id, format).Context(ctx).Download()
	} else if textual(file.MimeType) && file.Size <= maxDownloadSize {
		resp, err = svc.Files.Get(file.Id).Context(ctx).Download()
	} else {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	// n characters are at most n*UTFMax bytes.
	data, err := io.ReadAll(io.LimitReader(resp.Body, int64(n)*utf8.UTFMax))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", file.Name, err)
	}
	return connectors.Preview(string(data), n), nil
}

func textual(mimeType string) bool {
	switch {
	case strings.HasPrefix(mimeType, "text/"):
		return true
	case mimeType == "application/json", mimeType == "application/xml", mimeType == "application/x-yaml":
		return true
	}
	return false
}
